package giftcards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/pkg/logger"
)

// maxDiscrepancies bounds the discrepancy log held in the snapshot
const maxDiscrepancies = 50

// snapshot is the on-disk representation of the cache
type snapshot struct {
	Cards            []CacheEntry  `json:"cards"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
	LastReconciledAt *time.Time    `json:"lastReconciledAt"`
}

// Cache is a write-through, file-persisted store of gift cards. Every
// mutation rewrites the snapshot file so the on-disk state always matches
// memory. Persistence failures degrade the cache to memory-only; they are
// logged but never surfaced to callers.
type Cache struct {
	path string

	mu               sync.Mutex
	cards            map[string]CacheEntry
	discrepancies    []Discrepancy
	lastReconciledAt *time.Time
}

// NewCache creates a cache backed by the snapshot file at path
func NewCache(path string) *Cache {
	return &Cache{
		path:  path,
		cards: make(map[string]CacheEntry),
	}
}

// Open loads the snapshot file. A missing or corrupt file leaves the
// cache empty; it is never a fatal condition.
func (c *Cache) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("Failed to load gift card snapshot",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Warn("Failed to parse gift card snapshot",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return nil
	}

	for _, entry := range snap.Cards {
		if entry.ID == "" {
			continue
		}
		c.cards[entry.ID] = entry
	}
	c.discrepancies = snap.Discrepancies
	c.lastReconciledAt = snap.LastReconciledAt

	return nil
}

// UpsertCard stores or replaces a card with fresh provenance metadata and
// persists the snapshot. Returns nil when the card has no ID.
func (c *Cache) UpsertCard(card GiftCard, source SyncSource, eventType string) *CacheEntry {
	if card.ID == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := CacheEntry{
		GiftCard:       card,
		CachedAt:       time.Now().UTC(),
		LastSyncSource: source,
		LastEventType:  eventType,
	}
	c.cards[card.ID] = entry
	c.persistLocked()

	return &entry
}

// GetCard returns a card by ID, or nil when not cached
func (c *Cache) GetCard(id string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cards[id]
	if !ok {
		return nil
	}
	return &entry
}

// ListCards returns all cached cards
func (c *Cache) ListCards() []CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]CacheEntry, 0, len(c.cards))
	for _, entry := range c.cards {
		entries = append(entries, entry)
	}
	return entries
}

// RecordDiscrepancy prepends a reconciliation finding to the bounded
// discrepancy log and persists the snapshot.
func (c *Cache) RecordDiscrepancy(d Discrepancy) Discrepancy {
	c.mu.Lock()
	defer c.mu.Unlock()

	d.ID = uuid.New().String()
	d.DetectedAt = time.Now().UTC()

	c.discrepancies = append([]Discrepancy{d}, c.discrepancies...)
	if len(c.discrepancies) > maxDiscrepancies {
		c.discrepancies = c.discrepancies[:maxDiscrepancies]
	}
	c.persistLocked()

	return d
}

// ListDiscrepancies returns the newest discrepancies, truncated to limit.
// A non-positive limit yields an empty slice.
func (c *Cache) ListDiscrepancies(limit int) []Discrepancy {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > len(c.discrepancies) {
		limit = len(c.discrepancies)
	}
	out := make([]Discrepancy, limit)
	copy(out, c.discrepancies[:limit])
	return out
}

// MarkReconciled records the completion time of a reconciliation run
func (c *Cache) MarkReconciled() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	c.lastReconciledAt = &now
	c.persistLocked()
}

// LastReconciledAt returns the completion time of the last successful
// reconciliation, or nil when none has completed yet.
func (c *Cache) LastReconciledAt() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastReconciledAt == nil {
		return nil
	}
	t := *c.lastReconciledAt
	return &t
}

// Health reports whether the snapshot file is writable
func (c *Cache) Health() error {
	dir := filepath.Dir(c.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("snapshot directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot path parent %s is not a directory", dir)
	}
	return nil
}

// persistLocked writes the snapshot file. Callers must hold c.mu.
func (c *Cache) persistLocked() {
	snap := snapshot{
		Cards:            make([]CacheEntry, 0, len(c.cards)),
		Discrepancies:    c.discrepancies,
		LastReconciledAt: c.lastReconciledAt,
	}
	for _, entry := range c.cards {
		snap.Cards = append(snap.Cards, entry)
	}
	if snap.Discrepancies == nil {
		snap.Discrepancies = []Discrepancy{}
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logger.Warn("Failed to encode gift card snapshot", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		logger.Warn("Failed to create snapshot directory",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return
	}

	if err := os.WriteFile(c.path, payload, 0o644); err != nil {
		logger.Warn("Failed to persist gift card snapshot",
			zap.String("path", c.path),
			zap.Error(err),
		)
	}
}
