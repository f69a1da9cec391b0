package giftcards

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/pkg/logger"
)

// reconcilePageSize is the page size used when walking the full remote
// card list during reconciliation.
const reconcilePageSize = 50

var (
	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_card_reconcile_runs_total",
			Help: "Total number of gift card reconciliation runs",
		},
		[]string{"result"},
	)

	discrepanciesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_card_discrepancies_total",
			Help: "Total number of gift card discrepancies detected",
		},
		[]string{"kind"},
	)

	webhookSyncFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gift_card_webhook_sync_failures_total",
			Help: "Total number of webhook-triggered gift card syncs that failed",
		},
	)
)

// EventObject is the object wrapper inside a webhook event payload
type EventObject struct {
	GiftCard         *eventGiftCard `json:"gift_card,omitempty"`
	GiftCardActivity *eventActivity `json:"gift_card_activity,omitempty"`
}

type eventGiftCard struct {
	ID string `json:"id"`
}

type eventActivity struct {
	GiftCardID string         `json:"gift_card_id,omitempty"`
	GiftCard   *eventGiftCard `json:"gift_card,omitempty"`
}

// EventPayload is the data section of a gift card webhook event
type EventPayload struct {
	Object *EventObject `json:"object,omitempty"`
}

// Coordinator keeps the local cache converged with the remote platform.
// Webhook events trigger targeted refreshes; a periodic reconciliation
// walks the full remote card list and records discrepancies.
type Coordinator struct {
	remote   RemoteSource
	cache    *Cache
	interval time.Duration

	reconciling atomic.Bool
	done        chan struct{}
}

// NewCoordinator creates a sync coordinator
func NewCoordinator(remote RemoteSource, cache *Cache, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Coordinator{
		remote:   remote,
		cache:    cache,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs an eager reconciliation and then reconciles on the configured
// interval until ctx is cancelled or Stop is called.
func (co *Coordinator) Start(ctx context.Context) {
	logger.Info("Gift card sync coordinator started",
		zap.Duration("interval", co.interval),
	)

	if err := co.Reconcile(ctx); err != nil {
		logger.Warn("Initial gift card reconciliation failed", zap.Error(err))
	}

	ticker := time.NewTicker(co.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Gift card sync coordinator stopping: context cancelled")
			return
		case <-co.done:
			logger.Info("Gift card sync coordinator stopped")
			return
		case <-ticker.C:
			if err := co.Reconcile(ctx); err != nil {
				logger.Warn("Scheduled gift card reconciliation failed", zap.Error(err))
			}
		}
	}
}

// Stop signals the coordinator loop to exit
func (co *Coordinator) Stop() {
	close(co.done)
}

// HandleEvent reacts to a gift card webhook event by refreshing the
// referenced card from the remote platform. Events without a resolvable
// card ID are ignored. Remote failures are logged, never propagated, so
// a flaky remote cannot fail webhook delivery.
func (co *Coordinator) HandleEvent(ctx context.Context, eventType string, payload EventPayload) {
	if eventType == "" {
		return
	}

	giftCardID := extractGiftCardID(payload)
	if giftCardID == "" {
		return
	}

	if _, err := co.SyncCard(ctx, giftCardID, SourceWebhook, eventType); err != nil {
		webhookSyncFailuresTotal.Inc()
		logger.Warn("Webhook gift card sync failed",
			zap.String("gift_card_id", giftCardID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// SyncCard fetches a single card from the remote platform and upserts it
// into the cache with the given provenance.
func (co *Coordinator) SyncCard(ctx context.Context, giftCardID string, source SyncSource, eventType string) (*GiftCard, error) {
	if giftCardID == "" {
		return nil, nil
	}

	card, err := co.remote.RetrieveGiftCard(ctx, giftCardID)
	if err != nil {
		return nil, err
	}

	co.cache.UpsertCard(*card, source, eventType)
	return card, nil
}

// Reconcile walks the full remote card list, converges the cache onto the
// remote state and records any discrepancies found. Overlapping runs are
// skipped, not queued. Cards present locally but missing remotely are
// flagged yet never deleted from the cache.
func (co *Coordinator) Reconcile(ctx context.Context) error {
	if !co.reconciling.CompareAndSwap(false, true) {
		logger.Debug("Reconciliation already in progress, skipping")
		reconcileRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer co.reconciling.Store(false)

	cards, err := co.fetchAllGiftCards(ctx)
	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		logger.Warn("Gift card reconciliation failed", zap.Error(err))
		return err
	}

	remaining := make(map[string]CacheEntry)
	for _, entry := range co.cache.ListCards() {
		remaining[entry.ID] = entry
	}

	for _, card := range cards {
		if card.ID == "" {
			continue
		}

		cached, known := remaining[card.ID]
		delete(remaining, card.ID)

		if known && cached.Balance.Amount == card.Balance.Amount && cached.State == card.State {
			co.cache.UpsertCard(card, SourceReconciler, "")
			continue
		}

		if known {
			cachedBalance := cached.Balance.Amount
			remoteBalance := card.Balance.Amount
			co.recordDiscrepancy(Discrepancy{
				GiftCardID:    card.ID,
				Kind:          DiscrepancyBalanceMismatch,
				CachedBalance: &cachedBalance,
				RemoteBalance: &remoteBalance,
				CachedState:   cached.State,
				RemoteState:   card.State,
			})
		} else {
			remoteBalance := card.Balance.Amount
			co.recordDiscrepancy(Discrepancy{
				GiftCardID:    card.ID,
				Kind:          DiscrepancyMissingLocal,
				RemoteBalance: &remoteBalance,
				RemoteState:   card.State,
			})
		}

		co.cache.UpsertCard(card, SourceReconciler, "")
	}

	for _, cached := range remaining {
		cachedBalance := cached.Balance.Amount
		co.recordDiscrepancy(Discrepancy{
			GiftCardID:    cached.ID,
			Kind:          DiscrepancyMissingRemote,
			CachedBalance: &cachedBalance,
			CachedState:   cached.State,
		})
	}

	co.cache.MarkReconciled()
	reconcileRunsTotal.WithLabelValues("success").Inc()

	logger.Info("Gift card reconciliation completed",
		zap.Int("remote_cards", len(cards)),
	)
	return nil
}

func (co *Coordinator) recordDiscrepancy(d Discrepancy) {
	recorded := co.cache.RecordDiscrepancy(d)
	discrepanciesTotal.WithLabelValues(string(d.Kind)).Inc()
	logger.Warn("Gift card discrepancy detected",
		zap.String("gift_card_id", recorded.GiftCardID),
		zap.String("kind", string(recorded.Kind)),
	)
}

// fetchAllGiftCards pages through the full remote card list
func (co *Coordinator) fetchAllGiftCards(ctx context.Context) ([]GiftCard, error) {
	var cards []GiftCard
	cursor := ""

	for {
		page, err := co.remote.ListGiftCards(ctx, ListOptions{
			Limit:  reconcilePageSize,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}

		cards = append(cards, page.Cards...)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return cards, nil
}

func extractGiftCardID(payload EventPayload) string {
	obj := payload.Object
	if obj == nil {
		return ""
	}
	if obj.GiftCard != nil && obj.GiftCard.ID != "" {
		return obj.GiftCard.ID
	}
	if obj.GiftCardActivity != nil {
		if obj.GiftCardActivity.GiftCardID != "" {
			return obj.GiftCardActivity.GiftCardID
		}
		if obj.GiftCardActivity.GiftCard != nil {
			return obj.GiftCardActivity.GiftCard.ID
		}
	}
	return ""
}
