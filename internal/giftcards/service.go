package giftcards

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerkeep/billing-console/pkg/common"
	"github.com/ledgerkeep/billing-console/pkg/squareapi"
)

// defaultListLimit is the page size used when callers do not specify one
const defaultListLimit = 30

const (
	defaultCurrency = "USD"

	activityActivate        = "ACTIVATE"
	activityLoad            = "LOAD"
	activityBlock           = "BLOCK"
	activityUnblock         = "UNBLOCK"
	activityAdjustIncrement = "ADJUST_INCREMENT"
	activityAdjustDecrement = "ADJUST_DECREMENT"
)

// Service is the console-facing facade over the remote gift card API.
// It normalizes wire payloads into console models and translates remote
// errors into AppErrors.
type Service struct {
	client     RemoteClientInterface
	locationID string
}

// NewService creates a gift card service
func NewService(client RemoteClientInterface, locationID string) *Service {
	return &Service{
		client:     client,
		locationID: locationID,
	}
}

// wrapRemoteError translates a remote request failure into an AppError
// carrying the remote status and joined error details. Other errors pass
// through unchanged.
func wrapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var reqErr *squareapi.RequestError
	if errors.As(err, &reqErr) {
		status := reqErr.StatusCode
		if status == 0 {
			status = 400
		}
		return common.NewAppError(status, reqErr.Detail(), err)
	}
	return err
}

// normalizeMoney fills in defaults for an absent or partial amount
func normalizeMoney(money *squareapi.Money) Money {
	normalized := Money{Amount: 0, Currency: defaultCurrency}
	if money == nil {
		return normalized
	}
	normalized.Amount = money.Amount
	if money.Currency != "" {
		normalized.Currency = money.Currency
	}
	return normalized
}

// mapGiftCard converts a wire gift card into the console model
func mapGiftCard(card *squareapi.GiftCard) GiftCard {
	if card == nil {
		return GiftCard{}
	}
	customerIDs := card.CustomerIDs
	if customerIDs == nil {
		customerIDs = []string{}
	}
	return GiftCard{
		ID:          card.ID,
		Type:        GiftCardType(card.Type),
		State:       GiftCardState(card.State),
		GAN:         card.GAN,
		CreatedAt:   card.CreatedAt,
		Balance:     normalizeMoney(card.BalanceMoney),
		CustomerIDs: customerIDs,
	}
}

// extractActivityAmount picks the amount from whichever activity detail
// variant is populated.
func extractActivityAmount(activity *squareapi.GiftCardActivity) Money {
	details := []*squareapi.ActivityDetails{
		activity.LoadActivityDetails,
		activity.ActivateActivityDetails,
		activity.AdjustIncrementActivityDetails,
		activity.AdjustDecrementActivityDetails,
		activity.RedeemActivityDetails,
		activity.ClearBalanceActivityDetails,
	}
	for _, detail := range details {
		if detail != nil && detail.AmountMoney != nil {
			return normalizeMoney(detail.AmountMoney)
		}
	}
	return normalizeMoney(nil)
}

// mapActivity converts a wire activity into the console model
func mapActivity(activity *squareapi.GiftCardActivity) Activity {
	if activity == nil {
		return Activity{}
	}
	giftCardID := activity.GiftCardID
	if giftCardID == "" {
		giftCardID = activity.GiftCardGAN
	}
	return Activity{
		ID:         activity.ID,
		Type:       activity.Type,
		LocationID: activity.LocationID,
		CreatedAt:  activity.CreatedAt,
		GiftCardID: giftCardID,
		Balance:    normalizeMoney(activity.GiftCardBalanceMoney),
		Amount:     extractActivityAmount(activity),
	}
}

// CentsFromAmount parses a decimal amount string into cents. Returns
// nil for blank or unparseable input.
func CentsFromAmount(amount string) *int64 {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil
	}
	numeric, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	cents := int64(math.Round(numeric * 100))
	return &cents
}

// ListGiftCards fetches a page of gift cards from the remote platform
func (s *Service) ListGiftCards(ctx context.Context, opts ListOptions) (*CardPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	resp, err := s.client.ListGiftCards(ctx, squareapi.ListGiftCardsOptions{
		Type:       opts.Type,
		State:      opts.State,
		CustomerID: opts.CustomerID,
		Limit:      limit,
		Cursor:     opts.Cursor,
	})
	if err != nil {
		return nil, wrapRemoteError(err)
	}

	cards := make([]GiftCard, 0, len(resp.GiftCards))
	for i := range resp.GiftCards {
		cards = append(cards, mapGiftCard(&resp.GiftCards[i]))
	}

	return &CardPage{Cards: cards, Cursor: resp.Cursor}, nil
}

// ListGiftCardActivities fetches a page of activities from the remote platform
func (s *Service) ListGiftCardActivities(ctx context.Context, opts ActivityListOptions) (*ActivityPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	sortOrder := opts.SortOrder
	if sortOrder == "" {
		sortOrder = "DESC"
	}

	resp, err := s.client.ListGiftCardActivities(ctx, squareapi.ListActivitiesOptions{
		GiftCardID: opts.GiftCardID,
		Type:       opts.Type,
		LocationID: opts.LocationID,
		BeginTime:  opts.BeginTime,
		EndTime:    opts.EndTime,
		Limit:      limit,
		Cursor:     opts.Cursor,
		SortOrder:  sortOrder,
	})
	if err != nil {
		return nil, wrapRemoteError(err)
	}

	activities := make([]Activity, 0, len(resp.GiftCardActivities))
	for i := range resp.GiftCardActivities {
		activities = append(activities, mapActivity(&resp.GiftCardActivities[i]))
	}

	return &ActivityPage{Activities: activities, Cursor: resp.Cursor}, nil
}

// IssueGiftCard creates a gift card, optionally links it to a customer
// and activates it with an initial balance.
func (s *Service) IssueGiftCard(ctx context.Context, req *IssueGiftCardRequest) (*GiftCard, error) {
	if s.locationID == "" {
		return nil, common.NewBadRequestError("location ID is required to issue a gift card", nil)
	}

	cardType := req.Type
	if cardType == "" {
		cardType = string(TypeDigital)
	}
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	createResp, err := s.client.CreateGiftCard(ctx, squareapi.CreateGiftCardRequest{
		IdempotencyKey: uuid.New().String(),
		LocationID:     s.locationID,
		GiftCard:       &squareapi.GiftCard{Type: cardType},
	})
	if err != nil {
		return nil, wrapRemoteError(err)
	}
	if createResp.GiftCard == nil {
		return nil, common.NewInternalServerError("gift card creation response did not include a card", nil)
	}
	card := createResp.GiftCard

	if req.CustomerID != "" {
		if _, err := s.client.LinkCustomer(ctx, card.ID, req.CustomerID); err != nil {
			return nil, wrapRemoteError(err)
		}
	}

	if req.AmountCents > 0 {
		_, err := s.client.CreateGiftCardActivity(ctx, squareapi.CreateActivityRequest{
			IdempotencyKey: uuid.New().String(),
			GiftCardActivity: &squareapi.GiftCardActivity{
				Type:       activityActivate,
				LocationID: s.locationID,
				GiftCardID: card.ID,
				ActivateActivityDetails: &squareapi.ActivityDetails{
					AmountMoney: &squareapi.Money{Amount: req.AmountCents, Currency: currency},
					ReferenceID: req.ReferenceID,
				},
			},
		})
		if err != nil {
			return nil, wrapRemoteError(err)
		}
	}

	mapped := mapGiftCard(card)
	return &mapped, nil
}

// LoadGiftCardBalance adds value to an existing gift card
func (s *Service) LoadGiftCardBalance(ctx context.Context, giftCardID string, req *LoadGiftCardRequest) error {
	if giftCardID == "" || req.AmountCents <= 0 {
		return common.NewBadRequestError("gift card ID and a positive amount are required", nil)
	}
	if s.locationID == "" {
		return common.NewBadRequestError("location ID is required", nil)
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	_, err := s.client.CreateGiftCardActivity(ctx, squareapi.CreateActivityRequest{
		IdempotencyKey: uuid.New().String(),
		GiftCardActivity: &squareapi.GiftCardActivity{
			Type:       activityLoad,
			LocationID: s.locationID,
			GiftCardID: giftCardID,
			LoadActivityDetails: &squareapi.ActivityDetails{
				AmountMoney: &squareapi.Money{Amount: req.AmountCents, Currency: currency},
				ReferenceID: req.ReferenceID,
			},
		},
	})
	return wrapRemoteError(err)
}

// BlockGiftCard blocks a gift card from use
func (s *Service) BlockGiftCard(ctx context.Context, giftCardID, reason string) error {
	if giftCardID == "" || s.locationID == "" {
		return common.NewBadRequestError("gift card and location are required", nil)
	}
	if reason == "" {
		reason = "Blocked via console"
	}

	_, err := s.client.CreateGiftCardActivity(ctx, squareapi.CreateActivityRequest{
		IdempotencyKey: uuid.New().String(),
		GiftCardActivity: &squareapi.GiftCardActivity{
			Type:                 activityBlock,
			LocationID:           s.locationID,
			GiftCardID:           giftCardID,
			BlockActivityDetails: &squareapi.ActivityDetails{Reason: reason},
		},
	})
	return wrapRemoteError(err)
}

// UnblockGiftCard lifts a block on a gift card
func (s *Service) UnblockGiftCard(ctx context.Context, giftCardID, reason string) error {
	if giftCardID == "" || s.locationID == "" {
		return common.NewBadRequestError("gift card and location are required", nil)
	}
	if reason == "" {
		reason = "Unblocked via console"
	}

	_, err := s.client.CreateGiftCardActivity(ctx, squareapi.CreateActivityRequest{
		IdempotencyKey: uuid.New().String(),
		GiftCardActivity: &squareapi.GiftCardActivity{
			Type:                   activityUnblock,
			LocationID:             s.locationID,
			GiftCardID:             giftCardID,
			UnblockActivityDetails: &squareapi.ActivityDetails{Reason: reason},
		},
	})
	return wrapRemoteError(err)
}

// AdjustGiftCardBalance applies a manual balance adjustment. The sign of
// the amount selects increment versus decrement; the wire payload always
// carries the absolute value.
func (s *Service) AdjustGiftCardBalance(ctx context.Context, giftCardID string, req *AdjustGiftCardRequest) error {
	if giftCardID == "" || s.locationID == "" {
		return common.NewBadRequestError("gift card and location are required", nil)
	}
	if req.AmountCents == 0 {
		return common.NewBadRequestError("adjustment amount must be non-zero", nil)
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	reason := req.Reason
	if reason == "" {
		reason = "Manual adjustment"
	}

	amount := req.AmountCents
	if amount < 0 {
		amount = -amount
	}
	details := &squareapi.ActivityDetails{
		AmountMoney: &squareapi.Money{Amount: amount, Currency: currency},
		Reason:      reason,
	}

	activity := &squareapi.GiftCardActivity{
		LocationID: s.locationID,
		GiftCardID: giftCardID,
	}
	if req.AmountCents > 0 {
		activity.Type = activityAdjustIncrement
		activity.AdjustIncrementActivityDetails = details
	} else {
		activity.Type = activityAdjustDecrement
		activity.AdjustDecrementActivityDetails = details
	}

	_, err := s.client.CreateGiftCardActivity(ctx, squareapi.CreateActivityRequest{
		IdempotencyKey:   uuid.New().String(),
		GiftCardActivity: activity,
	})
	return wrapRemoteError(err)
}

// RetrieveGiftCard fetches a single gift card by ID
func (s *Service) RetrieveGiftCard(ctx context.Context, giftCardID string) (*GiftCard, error) {
	if giftCardID == "" {
		return nil, common.NewBadRequestError("gift card ID is required", nil)
	}

	resp, err := s.client.RetrieveGiftCard(ctx, giftCardID)
	if err != nil {
		return nil, wrapRemoteError(err)
	}

	card := mapGiftCard(resp.GiftCard)
	return &card, nil
}

// RetrieveGiftCardFromGAN fetches a single gift card by its account number
func (s *Service) RetrieveGiftCardFromGAN(ctx context.Context, gan string) (*GiftCard, error) {
	trimmed := strings.TrimSpace(gan)
	if trimmed == "" {
		return nil, common.NewBadRequestError("gift card account number is required", nil)
	}

	resp, err := s.client.RetrieveGiftCardFromGAN(ctx, trimmed)
	if err != nil {
		return nil, wrapRemoteError(err)
	}

	card := mapGiftCard(resp.GiftCard)
	return &card, nil
}

// SearchGiftCard looks up a card first by ID and then by account number.
// Returns nil without error when neither lookup matches.
func (s *Service) SearchGiftCard(ctx context.Context, query string) (*GiftCard, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	if card, err := s.RetrieveGiftCard(ctx, trimmed); err == nil {
		return card, nil
	}

	card, err := s.RetrieveGiftCardFromGAN(ctx, trimmed)
	if err != nil {
		return nil, nil
	}
	return card, nil
}

// BuildStats aggregates dashboard statistics over a set of cards
func BuildStats(cards []GiftCard) Stats {
	stats := Stats{TotalIssued: len(cards)}
	for _, card := range cards {
		stats.TotalBalance += card.Balance.Amount
		switch card.State {
		case StateActive:
			stats.ActiveCards++
		case StateBlocked:
			stats.BlockedCards++
		case StateDeactivated:
			stats.DeactivatedCards++
		}
	}
	return stats
}
