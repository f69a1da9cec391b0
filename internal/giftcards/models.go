package giftcards

import "time"

// GiftCardType represents the form factor of a gift card
type GiftCardType string

const (
	TypeDigital  GiftCardType = "DIGITAL"
	TypePhysical GiftCardType = "PHYSICAL"
)

// GiftCardState represents the lifecycle state of a gift card
type GiftCardState string

const (
	StatePending     GiftCardState = "PENDING"
	StateActive      GiftCardState = "ACTIVE"
	StateBlocked     GiftCardState = "BLOCKED"
	StateDeactivated GiftCardState = "DEACTIVATED"
)

// SyncSource identifies how a cache entry was last refreshed
type SyncSource string

const (
	SourceManual     SyncSource = "manual"
	SourceWebhook    SyncSource = "webhook"
	SourceReconciler SyncSource = "reconciler"
)

// DiscrepancyKind classifies a reconciliation finding
type DiscrepancyKind string

const (
	DiscrepancyBalanceMismatch DiscrepancyKind = "BALANCE_MISMATCH"
	DiscrepancyMissingLocal    DiscrepancyKind = "MISSING_LOCAL"
	DiscrepancyMissingRemote   DiscrepancyKind = "MISSING_SQUARE"
)

// Money is an amount in the smallest currency unit
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// GiftCard is the console's view of a gift card
type GiftCard struct {
	ID          string        `json:"id"`
	Type        GiftCardType  `json:"type"`
	State       GiftCardState `json:"state"`
	GAN         string        `json:"gan"`
	CreatedAt   string        `json:"createdAt,omitempty"`
	Balance     Money         `json:"balance"`
	CustomerIDs []string      `json:"customerIds"`
}

// CacheEntry is a gift card as held in the local cache, enriched with
// provenance metadata describing the last refresh.
type CacheEntry struct {
	GiftCard
	CachedAt       time.Time  `json:"cachedAt"`
	LastSyncSource SyncSource `json:"lastSyncSource,omitempty"`
	LastEventType  string     `json:"lastEventType,omitempty"`
}

// Discrepancy records a disagreement between the cache and the remote
// platform found during reconciliation.
type Discrepancy struct {
	ID            string          `json:"id"`
	DetectedAt    time.Time       `json:"detectedAt"`
	GiftCardID    string          `json:"giftCardId"`
	Kind          DiscrepancyKind `json:"kind"`
	CachedBalance *int64          `json:"cachedBalance"`
	RemoteBalance *int64          `json:"squareBalance"`
	CachedState   GiftCardState   `json:"cachedState,omitempty"`
	RemoteState   GiftCardState   `json:"squareState,omitempty"`
}

// Activity is a single balance or state mutation on a gift card
type Activity struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	LocationID string `json:"locationId"`
	CreatedAt  string `json:"createdAt"`
	GiftCardID string `json:"giftCardId"`
	Balance    Money  `json:"balance"`
	Amount     Money  `json:"amount"`
}

// Stats aggregates a set of gift cards for the console dashboard
type Stats struct {
	TotalBalance     int64 `json:"totalBalance"`
	ActiveCards      int   `json:"activeCards"`
	BlockedCards     int   `json:"blockedCards"`
	DeactivatedCards int   `json:"deactivatedCards"`
	TotalIssued      int   `json:"totalIssued"`
}

// SyncHealth summarizes reconciliation status for the console
type SyncHealth struct {
	LastReconciledAt *time.Time    `json:"lastReconciledAt"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
}

// CardPage is one page of gift cards from the remote platform
type CardPage struct {
	Cards  []GiftCard `json:"cards"`
	Cursor string     `json:"cursor,omitempty"`
}

// ActivityPage is one page of activities from the remote platform
type ActivityPage struct {
	Activities []Activity `json:"activities"`
	Cursor     string     `json:"cursor,omitempty"`
}

// IssueGiftCardRequest is the payload for issuing a new gift card
type IssueGiftCardRequest struct {
	Type        string `json:"type" validate:"gift_card_type"`
	AmountCents int64  `json:"amount_cents" binding:"omitempty,gte=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	CustomerID  string `json:"customer_id"`
	ReferenceID string `json:"reference_id"`
}

// LoadGiftCardRequest is the payload for loading value onto a card
type LoadGiftCardRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	ReferenceID string `json:"reference_id"`
}

// AdjustGiftCardRequest is the payload for a manual balance adjustment.
// A positive amount increments the balance, a negative amount decrements it.
type AdjustGiftCardRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	Reason      string `json:"reason"`
}

// BlockGiftCardRequest is the payload for blocking or unblocking a card
type BlockGiftCardRequest struct {
	Reason string `json:"reason"`
}
