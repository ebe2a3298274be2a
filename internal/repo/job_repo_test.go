package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxify/voxify-backend/internal/domain"
)

func newJobRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("job_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA busy_timeout = 5000")

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedJob(t *testing.T, db *gorm.DB, id, user string, status domain.JobStatus) *domain.SynthesisJob {
	t.Helper()
	j := &domain.SynthesisJob{
		ID:              id,
		UserID:          user,
		VoiceModelID:    "11111111-1111-1111-1111-111111111111",
		TextContent:     "hello there",
		TextFingerprint: "f0f0",
		CharCount:       11,
		WordCount:       2,
		Format:          "wav",
		SampleRate:      24000,
		Speed:           1,
		Pitch:           1,
		Volume:          1,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}
	if err := CreateJob(context.Background(), db, j); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return j
}

func TestCreateJob_Error_NoTable(t *testing.T) {
	db := newJobRepoDB(t /* no migrations */)
	err := CreateJob(context.Background(), db, &domain.SynthesisJob{ID: "x"})
	if err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateGetJob_Roundtrip(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	seedJob(t, db, "j1", "u1", domain.JobStatusPending)

	got, err := GetJob(context.Background(), db, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.UserID != "u1" || got.Status != domain.JobStatusPending || got.TextContent != "hello there" {
		t.Fatalf("unexpected job: %+v", got)
	}

	if _, err := GetJob(context.Background(), db, "missing"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetJobForUser_ScopesByOwner(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	seedJob(t, db, "j1", "u1", domain.JobStatusPending)

	if _, err := GetJobForUser(context.Background(), db, "j1", "u2"); err != ErrNotFound {
		t.Fatalf("other user's job should be invisible, got %v", err)
	}
	if _, err := GetJobForUser(context.Background(), db, "j1", "u1"); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}

func TestTransitionJob_CommitsFromAdmissibleState(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	seedJob(t, db, "j1", "u1", domain.JobStatusPending)

	now := time.Now().UTC()
	rows, err := TransitionJob(context.Background(), db, "j1",
		[]domain.JobStatus{domain.JobStatusPending},
		map[string]any{"status": domain.JobStatusProcessing, "started_at": now, "updated_at": now},
	)
	if err != nil || rows != 1 {
		t.Fatalf("transition: rows=%d err=%v", rows, err)
	}

	got, _ := GetJob(context.Background(), db, "j1")
	if got.Status != domain.JobStatusProcessing || got.StartedAt == nil {
		t.Fatalf("transition not applied: %+v", got)
	}
}

func TestTransitionJob_ZeroRowsFromTerminalState(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	seedJob(t, db, "j1", "u1", domain.JobStatusCompleted)

	rows, err := TransitionJob(context.Background(), db, "j1",
		[]domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing},
		map[string]any{"status": domain.JobStatusCancelled, "updated_at": time.Now().UTC()},
	)
	if err != nil {
		t.Fatalf("transition err: %v", err)
	}
	if rows != 0 {
		t.Fatalf("terminal state must reject the transition, rows=%d", rows)
	}

	got, _ := GetJob(context.Background(), db, "j1")
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("terminal job mutated: %+v", got)
	}
}

func TestAdvanceJobProgress_Monotonic(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	j := seedJob(t, db, "j1", "u1", domain.JobStatusProcessing)
	_ = j

	now := time.Now().UTC()
	if rows, err := AdvanceJobProgress(context.Background(), db, "j1", 0.5, now); err != nil || rows != 1 {
		t.Fatalf("advance to 0.5: rows=%d err=%v", rows, err)
	}
	// Same fraction is allowed (non-decreasing).
	if rows, err := AdvanceJobProgress(context.Background(), db, "j1", 0.5, now); err != nil || rows != 1 {
		t.Fatalf("advance to same 0.5: rows=%d err=%v", rows, err)
	}
	// Regression is rejected in the WHERE clause.
	rows, err := AdvanceJobProgress(context.Background(), db, "j1", 0.3, now)
	if err != nil || rows != 0 {
		t.Fatalf("regression should affect 0 rows, rows=%d err=%v", rows, err)
	}
	got, _ := GetJob(context.Background(), db, "j1")
	if got.Progress != 0.5 {
		t.Fatalf("progress mutated by rejected update: %v", got.Progress)
	}

	// Not-processing jobs never advance.
	seedJob(t, db, "j2", "u1", domain.JobStatusPending)
	if rows, _ := AdvanceJobProgress(context.Background(), db, "j2", 0.1, now); rows != 0 {
		t.Fatalf("pending job must not accept progress, rows=%d", rows)
	}
}

func TestListJobsPage_And_Count(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		j := seedJob(t, db, fmt.Sprintf("j%d", i), "u1", domain.JobStatusPending)
		// Spread creation times so ordering is deterministic.
		db.Model(j).Update("created_at", base.Add(time.Duration(i)*time.Second))
	}
	seedJob(t, db, "other", "u2", domain.JobStatusPending)

	total, err := CountJobs(context.Background(), db, "u1")
	if err != nil || total != 5 {
		t.Fatalf("CountJobs: total=%d err=%v", total, err)
	}

	page, err := ListJobsPage(context.Background(), db, "u1", 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListJobsPage: n=%d err=%v", len(page), err)
	}
	if page[0].ID != "j4" || page[1].ID != "j3" {
		t.Fatalf("want newest first, got %s, %s", page[0].ID, page[1].ID)
	}
}

func TestDeleteJobsByVoice(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	seedJob(t, db, "j1", "u1", domain.JobStatusPending)
	seedJob(t, db, "j2", "u1", domain.JobStatusCompleted)

	if err := DeleteJobsByVoice(context.Background(), db, "11111111-1111-1111-1111-111111111111"); err != nil {
		t.Fatalf("DeleteJobsByVoice: %v", err)
	}
	if n, _ := CountJobs(context.Background(), db, "u1"); n != 0 {
		t.Fatalf("jobs survived voice deletion: %d", n)
	}
}

func TestGetUserUsage_Aggregates(t *testing.T) {
	db := newJobRepoDB(t, &domain.SynthesisJob{})
	ctx := context.Background()

	j1 := seedJob(t, db, "j1", "u1", domain.JobStatusCompleted)
	db.Model(j1).Updates(map[string]any{"cache_hit": true, "char_count": 10})
	j2 := seedJob(t, db, "j2", "u1", domain.JobStatusCompleted)
	db.Model(j2).Update("char_count", 7)
	seedJob(t, db, "j3", "u1", domain.JobStatusFailed)
	seedJob(t, db, "j4", "u2", domain.JobStatusCompleted)

	u, err := GetUserUsage(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetUserUsage: %v", err)
	}
	if u.TotalJobs != 3 || u.CompletedJobs != 2 || u.CacheHits != 1 || u.CharsCompleted != 17 {
		t.Fatalf("unexpected usage: %+v", u)
	}

	// A user with no jobs gets zeroes, not an error.
	empty, err := GetUserUsage(ctx, db, "nobody")
	if err != nil || empty.TotalJobs != 0 {
		t.Fatalf("empty usage: %+v err=%v", empty, err)
	}
}
