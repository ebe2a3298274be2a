// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the synthesis
// result cache.
//
// The cache's correctness hinges on the ux_cache_key unique index over
// (text_fingerprint, voice_model_id, config_fingerprint). Insertion races
// are resolved by the index itself: the first INSERT wins and every loser
// gets ErrDuplicate, which the service layer turns into a re-lookup. Hit
// accounting is a single UPDATE with SQL-side arithmetic so that N
// concurrent hits increment hit_count by exactly N.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/textproc"
)

// ErrDuplicate indicates that a cache entry already exists for the given
// composite key (or, for idempotency records, the same request key).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation detects unique-constraint violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// byCacheKey scopes a query to one composite cache key.
func byCacheKey(db *gorm.DB, key textproc.CacheKey) *gorm.DB {
	return db.Where(
		"text_fingerprint = ? AND voice_model_id = ? AND config_fingerprint = ?",
		key.TextFingerprint, key.VoiceModelID, key.ConfigFingerprint,
	)
}

// GetLiveCacheEntry returns the entry for key if one exists and is live at
// now, or ErrNotFound. Expired rows are reported as a miss here and left
// for the sweep; a lookup racing an eviction sees either the pre-eviction
// row or a clean miss, never a partial row (single-row SELECT/DELETE).
func GetLiveCacheEntry(ctx context.Context, db *gorm.DB, key textproc.CacheKey, now time.Time) (*domain.SynthesisCacheEntry, error) {
	var e domain.SynthesisCacheEntry
	err := byCacheKey(db.WithContext(ctx), key).
		Where("is_permanent OR expires_at IS NULL OR expires_at > ?", now).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// TouchCacheEntry records one cache hit: hit_count is incremented in SQL
// and last_accessed advances to now in the same UPDATE, so concurrent hits
// never lose an increment. Returns the refreshed entry.
func TouchCacheEntry(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.SynthesisCacheEntry, error) {
	res := db.WithContext(ctx).
		Model(&domain.SynthesisCacheEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"hit_count":     gorm.Expr("hit_count + 1"),
			"last_accessed": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Evicted between lookup and touch.
		return nil, ErrNotFound
	}
	var e domain.SynthesisCacheEntry
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertCacheEntry inserts a new entry, returning ErrDuplicate when a live
// entry already holds the key. A dead (expired, non-permanent) row holding
// the key does not count as a conflict: it is removed and the insert is
// retried once, so producers are never blocked by stale rows the sweep has
// not reached yet.
func InsertCacheEntry(ctx context.Context, db *gorm.DB, e *domain.SynthesisCacheEntry, now time.Time) error {
	err := db.WithContext(ctx).Create(e).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}

	// The key is taken. Clear it only if the holder is dead.
	key := textproc.CacheKey{
		TextFingerprint:   e.TextFingerprint,
		VoiceModelID:      e.VoiceModelID,
		ConfigFingerprint: e.ConfigFingerprint,
	}
	res := byCacheKey(db.WithContext(ctx), key).
		Where("NOT is_permanent AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&domain.SynthesisCacheEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Holder is live: genuine conflict, caller re-looks-up.
		return ErrDuplicate
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// EvictExpiredEntries removes every non-permanent entry whose expiry is at
// or before now and reports how many rows were removed. Rows with a NULL
// expiry are never removed (never-expires policy).
func EvictExpiredEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("NOT is_permanent AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&domain.SynthesisCacheEntry{})
	return res.RowsAffected, res.Error
}

// CacheStats aggregates cache occupancy for the admin surface.
type CacheStats struct {
	Entries    int64 `json:"entries"`
	Permanent  int64 `json:"permanent"`
	TotalHits  int64 `json:"total_hits"`
	TotalBytes int64 `json:"total_bytes"`
	ExpiredNow int64 `json:"expired_now"`
}

// GetCacheStats computes cache aggregates at now.
func GetCacheStats(ctx context.Context, db *gorm.DB, now time.Time) (*CacheStats, error) {
	var s CacheStats
	err := db.WithContext(ctx).
		Model(&domain.SynthesisCacheEntry{}).
		Select(
			"COUNT(*) AS entries, "+
				"SUM(CASE WHEN is_permanent THEN 1 ELSE 0 END) AS permanent, "+
				"COALESCE(SUM(hit_count), 0) AS total_hits, "+
				"COALESCE(SUM(output_size), 0) AS total_bytes, "+
				"SUM(CASE WHEN NOT is_permanent AND expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END) AS expired_now",
			now).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
