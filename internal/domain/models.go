// Package domain defines the persistence models for voice models, synthesis
// jobs, and the synthesis result cache. These types are mapped with GORM and
// form the core data layer of the Voxify backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// VoiceModel represents a registered, trained voice owned by a user. The
// actual embedding lives in the inference stack; this row only carries the
// opaque engine-side identifier needed to address it.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the voice owner; indexed for efficient retrieval.
//   - Name: human-readable voice name.
//   - Language: BCP-47 tag of the training samples.
//   - EngineVoiceID: opaque identifier of the voice in the synthesis engine.
//   - Ready: whether the voice finished training and can synthesize.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type VoiceModel struct {
	ID            string         `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"user_id"         gorm:"type:varchar(64);not null;index:idx_user_voices"`
	Name          string         `json:"name"            gorm:"type:varchar(255);not null"`
	Language      string         `json:"language"        gorm:"type:varchar(16);not null;default:'en'"`
	EngineVoiceID string         `json:"engine_voice_id" gorm:"type:varchar(128);not null"`
	Ready         bool           `json:"ready"           gorm:"not null;default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for VoiceModel.
func (VoiceModel) TableName() string { return "voice_models" }

// SynthesisJob represents one user-initiated request to render text into
// speech with a specific voice and rendering configuration. Request facts
// (text, config, fingerprints) are immutable after creation; outcome fields
// are written by the lifecycle transitions in services.JobService.
//
// Lifecycle: pending → processing → {completed, failed, cancelled}, or
// pending → completed directly when served from cache, or pending →
// {failed, cancelled}. Terminal states are absorbing.
type SynthesisJob struct {
	ID           string `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID       string `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_jobs,priority:1"`
	VoiceModelID string `json:"voice_model_id" gorm:"type:char(36);not null;index"`

	// Immutable request facts.
	TextContent     string  `json:"text_content"     gorm:"type:text;not null"`
	TextFingerprint string  `json:"text_fingerprint" gorm:"type:char(64);not null;index"`
	Language        string  `json:"language"         gorm:"type:varchar(16)"`
	CharCount       int     `json:"char_count"       gorm:"not null"`
	WordCount       int     `json:"word_count"       gorm:"not null"`
	Format          string  `json:"format"           gorm:"type:varchar(8);not null"`
	SampleRate      int     `json:"sample_rate"      gorm:"not null"`
	Speed           float64 `json:"speed"            gorm:"not null;default:1"`
	Pitch           float64 `json:"pitch"            gorm:"not null;default:1"`
	Volume          float64 `json:"volume"           gorm:"not null;default:1"`

	// Mutable outcome fields.
	Status             JobStatus  `json:"status"              gorm:"type:varchar(16);not null;index;check:status IN ('pending','processing','completed','failed','cancelled')"`
	Progress           float64    `json:"progress"            gorm:"not null;default:0"`
	ErrorMessage       string     `json:"error_message,omitempty" gorm:"type:text"`
	OutputPath         string     `json:"output_path,omitempty"   gorm:"type:text"`
	OutputSize         int64      `json:"output_size,omitempty"`
	Duration           float64    `json:"duration,omitempty"`
	WordTimestamps     Timestamps `json:"word_timestamps,omitempty"     gorm:"serializer:json"`
	SyllableTimestamps Timestamps `json:"syllable_timestamps,omitempty" gorm:"serializer:json"`
	PhonemeTimestamps  Timestamps `json:"phoneme_timestamps,omitempty"  gorm:"serializer:json"`
	ProcessingNode     string     `json:"processing_node,omitempty" gorm:"type:varchar(128)"`
	CacheHit           bool       `json:"cache_hit"                 gorm:"not null;default:false"`
	CachedResultID     *string    `json:"cached_result_id,omitempty" gorm:"type:char(36)"`

	// Derived durations, in seconds.
	QueueDuration      float64 `json:"queue_duration,omitempty"`
	ProcessingDuration float64 `json:"processing_duration,omitempty"`

	// Timestamps: each of StartedAt/CompletedAt is set exactly once and
	// CreatedAt <= StartedAt <= CompletedAt holds whenever both are present.
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_user_jobs,priority:2"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// VoiceModel is the parent voice. Jobs are removed when their voice is
	// deleted (cascade handled explicitly in services.VoiceService.Delete).
	VoiceModel VoiceModel `json:"-" gorm:"foreignKey:VoiceModelID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SynthesisJob.
func (SynthesisJob) TableName() string { return "synthesis_jobs" }

// SynthesisCacheEntry is a memoized synthesis result, addressable by the
// composite key (text fingerprint, voice model id, config fingerprint).
// The unique index on that triple is the correctness anchor: it guarantees
// at most one live entry per key and doubles as the mutual-exclusion
// mechanism for racing producers (first insert wins, losers re-lookup).
//
// Jobs reference entries by id only; an entry's lifetime is independent of
// any single job. Entries are removed by the expiry sweep unless permanent.
type SynthesisCacheEntry struct {
	ID                string `json:"id"                 gorm:"type:char(36);primaryKey"`
	TextFingerprint   string `json:"text_fingerprint"   gorm:"type:char(64);not null;uniqueIndex:ux_cache_key,priority:1"`
	VoiceModelID      string `json:"voice_model_id"     gorm:"type:char(36);not null;uniqueIndex:ux_cache_key,priority:2"`
	ConfigFingerprint string `json:"config_fingerprint" gorm:"type:char(64);not null;uniqueIndex:ux_cache_key,priority:3"`

	// Payload.
	OutputPath         string     `json:"output_path"  gorm:"type:text;not null"`
	OutputSize         int64      `json:"output_size"  gorm:"not null"`
	Duration           float64    `json:"duration"     gorm:"not null;check:duration > 0"`
	WordTimestamps     Timestamps `json:"word_timestamps,omitempty"     gorm:"serializer:json"`
	SyllableTimestamps Timestamps `json:"syllable_timestamps,omitempty" gorm:"serializer:json"`
	PhonemeTimestamps  Timestamps `json:"phoneme_timestamps,omitempty"  gorm:"serializer:json"`

	// Bookkeeping. HitCount is monotonically non-decreasing and advances
	// together with LastAccessed in a single atomic UPDATE on every hit.
	HitCount     int64      `json:"hit_count"     gorm:"not null;default:0"`
	LastAccessed time.Time  `json:"last_accessed" gorm:"not null"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" gorm:"index"`
	IsPermanent  bool       `json:"is_permanent"  gorm:"not null;default:false"`
}

// TableName returns the database table name for SynthesisCacheEntry.
func (SynthesisCacheEntry) TableName() string { return "synthesis_cache" }

// Live reports whether the entry may be served at the given instant.
// Permanent entries never expire; a nil ExpiresAt on a non-permanent entry
// means the entry never expires either.
func (e *SynthesisCacheEntry) Live(now time.Time) bool {
	if e.IsPermanent || e.ExpiresAt == nil {
		return true
	}
	return e.ExpiresAt.After(now)
}
