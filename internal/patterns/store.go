package patterns

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/pkg/logger"
)

// Store persists learned transfer patterns keyed by unordered
// account-pair key. Get returns (nil, nil) for a missing pattern; a
// missing or malformed pattern is never a hard error for callers.
type Store interface {
	Get(ctx context.Context, pairKey string) (*TransferPattern, error)
	List(ctx context.Context) ([]*TransferPattern, error)
	Save(ctx context.Context, pattern *TransferPattern) error
	Delete(ctx context.Context, pairKey string) error
	Close() error
}

// RecordFeedback folds a confirm/reject decision into the stored
// pattern for the account pair and returns the updated pattern. The
// caller supplies "now" so the recency penalty stays reproducible.
// Feedback writes are expected to be serialized by the caller; the
// engine assumes a single feedback writer at a time.
func RecordFeedback(ctx context.Context, store Store, pairKey string, fs features.FeatureSet, confirmed, autoDetected bool, now time.Time) (*TransferPattern, error) {
	existing, err := store.Get(ctx, pairKey)
	if err != nil {
		return nil, err
	}

	event := EventFromFeatures(fs, confirmed, autoDetected, now)
	updated := Apply(existing, pairKey, event)
	if updated == nil {
		// Reject with no existing pattern: nothing to record.
		return nil, nil
	}

	if err := store.Save(ctx, updated); err != nil {
		return nil, err
	}

	logger.WithComponent("patterns").WithFields(logger.Fields{
		"pair_key":   pairKey,
		"confirmed":  confirmed,
		"confidence": updated.Confidence,
		"successes":  updated.SuccessCount,
		"rejections": updated.RejectedCount,
	}).Debug("recorded transfer feedback")

	return updated, nil
}

// Cleanup deletes patterns that are both idle beyond maxIdle and
// unreliable, or overwhelmingly rejected. It is a maintenance
// operation, never part of the hot scoring path. Returns the number of
// patterns removed.
func Cleanup(ctx context.Context, store Store, now time.Time, maxIdle time.Duration) (int, error) {
	all, err := store.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, pattern := range all {
		if !pattern.ShouldCleanup(now, maxIdle) {
			continue
		}
		if err := store.Delete(ctx, pattern.PairKey); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		logger.WithComponent("patterns").WithField("removed", removed).Info("cleaned up stale transfer patterns")
	}
	return removed, nil
}

// MemoryStore is an in-memory Store used in tests and by hosts that
// manage persistence themselves.
type MemoryStore struct {
	mu       sync.RWMutex
	patterns map[string]*TransferPattern
}

// NewMemoryStore creates an empty in-memory pattern store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patterns: make(map[string]*TransferPattern),
	}
}

// Get returns the pattern for a pair key, or (nil, nil) if absent
func (s *MemoryStore) Get(_ context.Context, pairKey string) (*TransferPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern, ok := s.patterns[pairKey]
	if !ok {
		return nil, nil
	}
	return pattern.clone(), nil
}

// List returns all stored patterns ordered by pair key
func (s *MemoryStore) List(_ context.Context) ([]*TransferPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*TransferPattern, 0, len(s.patterns))
	for _, pattern := range s.patterns {
		result = append(result, pattern.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PairKey < result[j].PairKey
	})
	return result, nil
}

// Save upserts a pattern
func (s *MemoryStore) Save(_ context.Context, pattern *TransferPattern) error {
	if err := pattern.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[pattern.PairKey] = pattern.clone()
	return nil
}

// Delete removes a pattern; deleting a missing pattern is not an error
func (s *MemoryStore) Delete(_ context.Context, pairKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patterns, pairKey)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
