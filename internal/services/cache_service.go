package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/observability"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/textproc"
)

// CacheService owns the content-addressed synthesis cache. Entries are
// keyed by (text fingerprint, voice model id, config fingerprint); the
// database-level unique index over that triple is what makes concurrent
// producers safe, so this service never takes locks of its own.
type CacheService struct {
	DB *gorm.DB

	// TTL is the lifetime assigned to new non-permanent entries. Zero or
	// negative means entries are created without an expiry.
	TTL time.Duration

	// Now supplies timestamps; tests inject a fixed clock.
	Now func() time.Time
}

func (s *CacheService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Lookup resolves key against the cache. On a hit it atomically increments
// the entry's hit count, refreshes last_accessed, and returns the entry
// with its post-increment bookkeeping. Expired entries are treated as
// absent. Misses return ErrCacheMiss.
func (s *CacheService) Lookup(ctx context.Context, key textproc.CacheKey) (*domain.SynthesisCacheEntry, error) {
	tr := otel.Tracer("services/CacheService")
	ctx, span := tr.Start(ctx, "Lookup",
		trace.WithAttributes(attribute.String("voice_model.id", key.VoiceModelID)),
	)
	defer span.End()

	now := s.now()
	entry, err := repo.GetLiveCacheEntry(ctx, s.DB, key, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	touched, err := repo.TouchCacheEntry(ctx, s.DB, entry.ID, now)
	if errors.Is(err, repo.ErrNotFound) {
		// Entry evicted between lookup and touch. Report a miss.
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	observability.CacheLookups.WithLabelValues("hit").Inc()
	return touched, nil
}

// Insert stores a freshly produced synthesis result under key. The entry
// starts with hit_count 0; last_accessed is set to the insertion instant.
// Permanent entries never expire; otherwise the configured TTL applies
// (no TTL means no expiry). If another producer has already published a
// live entry for the same key, Insert returns ErrCacheConflict and the
// caller should re-run Lookup to adopt the winner's entry.
func (s *CacheService) Insert(ctx context.Context, key textproc.CacheKey, out domain.SynthesisOutput, permanent bool) (*domain.SynthesisCacheEntry, error) {
	now := s.now()
	entry := &domain.SynthesisCacheEntry{
		ID:                uuid.NewString(),
		TextFingerprint:   key.TextFingerprint,
		VoiceModelID:      key.VoiceModelID,
		ConfigFingerprint: key.ConfigFingerprint,

		OutputPath:         out.OutputPath,
		OutputSize:         out.OutputSize,
		Duration:           out.Duration,
		WordTimestamps:     out.WordTimestamps,
		SyllableTimestamps: out.SyllableTimestamps,
		PhonemeTimestamps:  out.PhonemeTimestamps,

		HitCount:     0,
		LastAccessed: now,
		CreatedAt:    now,
		IsPermanent:  permanent,
	}
	if !permanent && s.TTL > 0 {
		exp := now.Add(s.TTL)
		entry.ExpiresAt = &exp
	}

	if err := repo.InsertCacheEntry(ctx, s.DB, entry, now); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrCacheConflict
		}
		return nil, err
	}
	return entry, nil
}

// EvictExpired removes every non-permanent entry whose expiry has passed
// and returns the number of rows removed. Safe to run concurrently with
// lookups and inserts.
func (s *CacheService) EvictExpired(ctx context.Context) (int64, error) {
	tr := otel.Tracer("services/CacheService")
	ctx, span := tr.Start(ctx, "EvictExpired")
	defer span.End()

	removed, err := repo.EvictExpiredEntries(ctx, s.DB, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		observability.CacheEvictions.Add(float64(removed))
		log.Info().Int64("removed", removed).Msg("cache sweep evicted expired entries")
	}
	return removed, nil
}

// Stats returns aggregate cache statistics for the admin surface.
func (s *CacheService) Stats(ctx context.Context) (*repo.CacheStats, error) {
	return repo.GetCacheStats(ctx, s.DB, s.now())
}
