// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SynthesisJob model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The one deliberate exception is
// TransitionJob, which encodes the guarded-UPDATE pattern the job state
// machine relies on: a transition is a single UPDATE whose WHERE clause
// names the admissible source states, so two racing transitions for the
// same job can never both commit — the loser observes zero affected rows
// and the service layer classifies the failure.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voxify/voxify-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateJob inserts a fully populated job row. The caller (JobService) is
// responsible for identifiers, fingerprints, and initial status.
func CreateJob(ctx context.Context, db *gorm.DB, j *domain.SynthesisJob) error {
	return db.WithContext(ctx).Create(j).Error
}

// GetJob fetches a job by id, or ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.SynthesisJob, error) {
	var j domain.SynthesisJob
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJobForUser fetches a job by id scoped to its owner, or ErrNotFound.
func GetJobForUser(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SynthesisJob, error) {
	var j domain.SynthesisJob
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CountJobs returns the total number of jobs owned by userID.
func CountJobs(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SynthesisJob{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListJobsPage returns a paginated slice of jobs for userID, ordered by
// creation time descending. Use CountJobs to obtain the total for pagination
// metadata.
func ListJobsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.SynthesisJob, error) {
	var out []domain.SynthesisJob
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TransitionJob applies updates to the job identified by id, but only while
// its status is one of from. It returns the number of affected rows: 1 when
// the transition committed, 0 when the job is missing or not in an
// admissible state (the caller re-reads to tell the two apart). The updates
// map must include the new status and updated_at so the whole transition is
// one atomic UPDATE.
func TransitionJob(ctx context.Context, db *gorm.DB, id string, from []domain.JobStatus, updates map[string]any) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.SynthesisJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// AdvanceJobProgress bumps progress for a processing job, enforcing
// monotonicity in the WHERE clause: the UPDATE commits only when the job is
// processing and the stored progress does not exceed the new fraction.
func AdvanceJobProgress(ctx context.Context, db *gorm.DB, id string, fraction float64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.SynthesisJob{}).
		Where("id = ? AND status = ? AND progress <= ?", id, domain.JobStatusProcessing, fraction).
		Updates(map[string]any{
			"progress":   fraction,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// DeleteJobsByVoice hard-deletes all jobs that reference the given voice
// model. Called inside the voice-deletion transaction to honor cascade
// semantics.
func DeleteJobsByVoice(ctx context.Context, db *gorm.DB, voiceModelID string) error {
	return db.WithContext(ctx).
		Where("voice_model_id = ?", voiceModelID).
		Delete(&domain.SynthesisJob{}).Error
}

// UserUsage aggregates per-user accounting: total jobs, completed jobs,
// cache-served jobs, and the number of characters actually rendered
// (completed jobs only).
type UserUsage struct {
	TotalJobs      int64 `json:"total_jobs"`
	CompletedJobs  int64 `json:"completed_jobs"`
	CacheHits      int64 `json:"cache_hits"`
	CharsCompleted int64 `json:"chars_completed"`
}

// GetUserUsage computes usage aggregates for userID in a single scan.
func GetUserUsage(ctx context.Context, db *gorm.DB, userID string) (*UserUsage, error) {
	var u UserUsage
	err := db.WithContext(ctx).
		Model(&domain.SynthesisJob{}).
		Select(
			"COUNT(*) AS total_jobs, "+
				"SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed_jobs, "+
				"SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END) AS cache_hits, "+
				"COALESCE(SUM(CASE WHEN status = 'completed' THEN char_count ELSE 0 END), 0) AS chars_completed").
		Where("user_id = ?", userID).
		Scan(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
