// Package domain – synthesis value types.
//
// This file defines the rendering configuration, the job status enum, the
// typed timestamp sequences, and the output descriptor exchanged between the
// synthesis engine and the job ledger. Configuration and timestamps are
// carried as structured values and serialized to JSON only at the storage
// boundary (GORM json serializer).
package domain

// JobStatus enumerates the synthesis job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is absorbing: once a job reaches a
// terminal status, every further mutation is rejected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Bounds for the per-request rendering multipliers. Speed and pitch share a
// range; volume additionally allows full mute.
const (
	MinSpeed  = 0.1
	MaxSpeed  = 3.0
	MinPitch  = 0.1
	MaxPitch  = 3.0
	MinVolume = 0.0
	MaxVolume = 3.0
)

// Defaults applied by SynthesisConfig.Normalize.
const (
	DefaultFormat     = "wav"
	DefaultSampleRate = 24000
)

// AllowedFormats lists the output container formats the engine can produce.
var AllowedFormats = map[string]struct{}{
	"wav":  {},
	"mp3":  {},
	"ogg":  {},
	"flac": {},
}

// SynthesisConfig is the fixed-shape rendering configuration of a job. Only
// these five fields affect the audible output; they are exactly the fields
// covered by the cache's config fingerprint.
type SynthesisConfig struct {
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Speed      float64 `json:"speed"`
	Pitch      float64 `json:"pitch"`
	Volume     float64 `json:"volume"`
}

// Normalize fills zero-valued fields with defaults so that requests omitting
// incidental fields land on the same canonical configuration (and therefore
// the same cache key). It does not validate bounds; that is the service's
// job, so that out-of-range input is reported rather than silently clamped.
func (c SynthesisConfig) Normalize() SynthesisConfig {
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Speed == 0 {
		c.Speed = 1.0
	}
	if c.Pitch == 0 {
		c.Pitch = 1.0
	}
	// Volume 0 is a legal value (mute), so it is never defaulted.
	return c
}

// TimestampSpan marks one labeled span of the rendered audio, in seconds
// from the start of the output.
type TimestampSpan struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Timestamps is an ordered sequence of spans (word, syllable, or phoneme
// granularity). Stored as a JSON column via the GORM serializer.
type Timestamps []TimestampSpan

// SynthesisOutput is the result descriptor delivered by the synthesis engine
// on success. The audio bytes themselves live in blob storage; the ledger
// and cache carry only the path and metadata.
type SynthesisOutput struct {
	OutputPath         string
	OutputSize         int64
	Duration           float64
	WordTimestamps     Timestamps
	SyllableTimestamps Timestamps
	PhonemeTimestamps  Timestamps
}
