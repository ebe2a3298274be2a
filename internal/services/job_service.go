// Package services – JobService
//
// This file implements the JobService, which owns the authoritative state
// machine for synthesis jobs. Submission validates the rendering request and
// records the immutable request facts (text, fingerprints, counts, config);
// the transition methods move the job through
// pending → processing → {completed, failed, cancelled} (or pending →
// completed directly when a job is served from cache).
//
// Every transition is one guarded UPDATE whose WHERE clause names the
// admissible source states, so concurrent transitions for the same job are
// totally ordered: exactly one commits, the rest observe zero affected rows
// and are reported as ErrInvalidState (or ErrJobNotFound after a re-read).
// Terminal states are absorbing; rejection leaves the row untouched.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// job/user identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/language"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/observability"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/textproc"
)

// IdentityStore answers existence checks for the foreign identifiers a
// submission references. The core treats both ids as opaque tokens; how
// they are validated (DB table, upstream auth, cache) is the implementer's
// concern. VoiceService satisfies this interface.
type IdentityStore interface {
	// UserExists reports whether the user id resolves to a known user.
	UserExists(ctx context.Context, userID string) (bool, error)
	// VoiceModelExists reports whether the voice model id resolves.
	VoiceModelExists(ctx context.Context, voiceModelID string) (bool, error)
}

// JobService coordinates synthesis job persistence and lifecycle.
type JobService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Identity validates user and voice-model references at submission.
	Identity IdentityStore

	// MaxTextChars caps submitted text by rune count. <= 0 disables the cap.
	MaxTextChars int

	// Now supplies timestamps; tests inject a fixed clock. Nil means
	// time.Now in UTC.
	Now func() time.Time
}

func (s *JobService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// pendingOrProcessing is the admissible source set for fail/cancel.
var pendingOrProcessing = []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}

// Submit validates the request and creates a job in the pending state.
//
// Validation order: text, config bounds, language tag, then reference
// checks. Speed and pitch must lie in [0.1, 3.0], volume in [0.0, 3.0],
// the format must be one of the supported containers, and the text must be
// non-empty and below the configured maximum. Reference failures surface as
// ErrUserNotFound / ErrVoiceModelNotFound. On success the returned job
// carries status pending and progress 0; the cache is not consulted here.
func (s *JobService) Submit(ctx context.Context, userID, voiceModelID, text, lang string, cfg domain.SynthesisConfig) (*domain.SynthesisJob, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("voice_model.id", voiceModelID),
		),
	)
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	charCount := textproc.CountChars(text)
	if s.MaxTextChars > 0 && charCount > s.MaxTextChars {
		return nil, ErrTextTooLong
	}

	cfg = cfg.Normalize()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	lang, err := NormalizeLanguageTag(lang)
	if err != nil {
		return nil, err
	}

	if ok, err := s.Identity.UserExists(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUserNotFound
	}
	if ok, err := s.Identity.VoiceModelExists(ctx, voiceModelID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrVoiceModelNotFound
	}

	j := &domain.SynthesisJob{
		ID:           uuid.NewString(),
		UserID:       userID,
		VoiceModelID: voiceModelID,

		TextContent:     text,
		TextFingerprint: textproc.Fingerprint(text),
		Language:        lang,
		CharCount:       charCount,
		WordCount:       textproc.CountWords(text),
		Format:          cfg.Format,
		SampleRate:      cfg.SampleRate,
		Speed:           cfg.Speed,
		Pitch:           cfg.Pitch,
		Volume:          cfg.Volume,

		Status:    domain.JobStatusPending,
		Progress:  0,
		CreatedAt: s.now(),
	}
	if err := repo.CreateJob(ctx, s.DB, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Config reconstructs the normalized rendering configuration persisted on
// the job; cache keys are always derived from these stored facts so the
// producer and every later lookup hash identical input.
func (s *JobService) Config(j *domain.SynthesisJob) domain.SynthesisConfig {
	return domain.SynthesisConfig{
		Format:     j.Format,
		SampleRate: j.SampleRate,
		Speed:      j.Speed,
		Pitch:      j.Pitch,
		Volume:     j.Volume,
	}
}

// BeginProcessing transitions pending -> processing and records started_at
// and the processing node. Fails with ErrInvalidState if the job is not
// pending (e.g., it was cancelled while queued).
func (s *JobService) BeginProcessing(ctx context.Context, jobID, node string) error {
	now := s.now()
	return s.transition(ctx, jobID, []domain.JobStatus{domain.JobStatusPending}, map[string]any{
		"status":          domain.JobStatusProcessing,
		"started_at":      now,
		"processing_node": node,
		"updated_at":      now,
	})
}

// RecordProgress updates the progress fraction of a processing job.
// Progress must lie in [0,1] and be non-decreasing; regressions are rejected
// with ErrBadProgress and leave the stored value unchanged.
func (s *JobService) RecordProgress(ctx context.Context, jobID string, fraction float64) error {
	if fraction < 0 || fraction > 1 {
		return ErrBadProgress
	}
	rows, err := repo.AdvanceJobProgress(ctx, s.DB, jobID, fraction, s.now())
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	// Classify: missing row, wrong state, or monotonicity violation.
	j, err := repo.GetJob(ctx, s.DB, jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if j.Status != domain.JobStatusProcessing {
		return ErrInvalidState
	}
	return ErrBadProgress
}

// Complete transitions processing -> completed, records the output
// descriptor, forces progress to 1.0, and derives the processing and queue
// durations from the recorded timestamps. Calling it on a job outside
// processing fails with ErrInvalidState and changes nothing.
func (s *JobService) Complete(ctx context.Context, jobID string, out domain.SynthesisOutput) error {
	now := s.now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := repo.GetJob(ctx, tx, jobID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if j.Status != domain.JobStatusProcessing {
			return ErrInvalidState
		}

		updates := map[string]any{
			"status":              domain.JobStatusCompleted,
			"progress":            1.0,
			"completed_at":        now,
			"output_path":         out.OutputPath,
			"output_size":         out.OutputSize,
			"duration":            out.Duration,
			"word_timestamps":     out.WordTimestamps,
			"syllable_timestamps": out.SyllableTimestamps,
			"phoneme_timestamps":  out.PhonemeTimestamps,
			"updated_at":          now,
		}
		if j.StartedAt != nil {
			updates["processing_duration"] = now.Sub(*j.StartedAt).Seconds()
			updates["queue_duration"] = j.StartedAt.Sub(j.CreatedAt).Seconds()
		}

		rows, err := repo.TransitionJob(ctx, tx, jobID, []domain.JobStatus{domain.JobStatusProcessing}, updates)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}
		return nil
	})
	if err == nil {
		observability.JobsFinished.WithLabelValues(string(domain.JobStatusCompleted)).Inc()
	}
	return err
}

// CompleteFromCache transitions pending -> completed directly, marking the
// job as a cache hit. Cache hits are logically instantaneous: started_at
// and completed_at are set to the same instant and the cached payload is
// copied into the job's output fields. Fails with ErrInvalidState if the
// job is not pending.
func (s *JobService) CompleteFromCache(ctx context.Context, jobID string, entry *domain.SynthesisCacheEntry) error {
	now := s.now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := repo.GetJob(ctx, tx, jobID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if j.Status != domain.JobStatusPending {
			return ErrInvalidState
		}

		rows, err := repo.TransitionJob(ctx, tx, jobID, []domain.JobStatus{domain.JobStatusPending}, map[string]any{
			"status":              domain.JobStatusCompleted,
			"progress":            1.0,
			"started_at":          now,
			"completed_at":        now,
			"cache_hit":           true,
			"cached_result_id":    entry.ID,
			"output_path":         entry.OutputPath,
			"output_size":         entry.OutputSize,
			"duration":            entry.Duration,
			"word_timestamps":     entry.WordTimestamps,
			"syllable_timestamps": entry.SyllableTimestamps,
			"phoneme_timestamps":  entry.PhonemeTimestamps,
			"queue_duration":      now.Sub(j.CreatedAt).Seconds(),
			"processing_duration": 0.0,
			"updated_at":          now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}
		return nil
	})
	if err == nil {
		observability.JobsFinished.WithLabelValues(string(domain.JobStatusCompleted)).Inc()
	}
	return err
}

// Fail transitions pending|processing -> failed with the engine's message.
// Terminal; repeated calls fail with ErrInvalidState.
func (s *JobService) Fail(ctx context.Context, jobID, errorMessage string) error {
	now := s.now()
	err := s.transition(ctx, jobID, pendingOrProcessing, map[string]any{
		"status":        domain.JobStatusFailed,
		"error_message": errorMessage,
		"completed_at":  now,
		"updated_at":    now,
	})
	if err == nil {
		observability.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()
	}
	return err
}

// Cancel transitions pending|processing -> cancelled. Cancel may race with
// BeginProcessing or Complete; whichever transition commits first wins and
// the loser observes ErrInvalidState. A cache insert already made by a
// racing completer is not undone.
func (s *JobService) Cancel(ctx context.Context, jobID string) error {
	now := s.now()
	err := s.transition(ctx, jobID, pendingOrProcessing, map[string]any{
		"status":       domain.JobStatusCancelled,
		"completed_at": now,
		"updated_at":   now,
	})
	if err == nil {
		observability.JobsFinished.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
	}
	return err
}

// Get fetches a job by id, mapping missing rows to ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, jobID string) (*domain.SynthesisJob, error) {
	j, err := repo.GetJob(ctx, s.DB, jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return j, err
}

// GetForUser fetches a job scoped to its owner.
func (s *JobService) GetForUser(ctx context.Context, jobID, userID string) (*domain.SynthesisJob, error) {
	j, err := repo.GetJobForUser(ctx, s.DB, jobID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return j, err
}

// ListPage returns paginated jobs for a user, most recent first.
func (s *JobService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.SynthesisJob, int64, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountJobs(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SynthesisJob{}, 0, nil
	}

	items, err := repo.ListJobsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Usage returns per-user accounting aggregates.
func (s *JobService) Usage(ctx context.Context, userID string) (*repo.UserUsage, error) {
	return repo.GetUserUsage(ctx, s.DB, userID)
}

// transition applies a guarded state change and classifies a zero-row
// outcome by re-reading the job: missing -> ErrJobNotFound, otherwise the
// job is in an inadmissible (usually terminal) state -> ErrInvalidState.
func (s *JobService) transition(ctx context.Context, jobID string, from []domain.JobStatus, updates map[string]any) error {
	rows, err := repo.TransitionJob(ctx, s.DB, jobID, from, updates)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := repo.GetJob(ctx, s.DB, jobID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	return ErrInvalidState
}

// validateConfig enforces the rendering bounds on a normalized config.
func validateConfig(cfg domain.SynthesisConfig) error {
	if _, ok := domain.AllowedFormats[cfg.Format]; !ok {
		return ErrBadFormat
	}
	if cfg.SampleRate <= 0 {
		return ErrBadSampleRate
	}
	if cfg.Speed < domain.MinSpeed || cfg.Speed > domain.MaxSpeed {
		return ErrSpeedOutOfRange
	}
	if cfg.Pitch < domain.MinPitch || cfg.Pitch > domain.MaxPitch {
		return ErrPitchOutOfRange
	}
	if cfg.Volume < domain.MinVolume || cfg.Volume > domain.MaxVolume {
		return ErrVolumeOutOfRange
	}
	return nil
}

// NormalizeLanguageTag parses tag as BCP-47 and returns its canonical
// string form, or ErrBadLanguage. An empty tag passes through unchanged
// (the engine autodetects).
func NormalizeLanguageTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", ErrBadLanguage
	}
	return t.String(), nil
}
