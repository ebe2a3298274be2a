// Package services defines the business logic for voice models, synthesis
// jobs, and the synthesis cache. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// The errors fall into five classes, and the class decides both the caller's
// recovery strategy and the HTTP mapping performed at the handler layer:
//
//   - validation (bad input, nothing mutated)        -> 400
//   - reference  (dangling user/voice id, nothing mutated) -> 404
//   - state      (operation illegal for current lifecycle state) -> 409
//   - conflict   (cache key race; recoverable by re-lookup) -> internal only
//   - engine     (asynchronous synthesis failure; surfaces via the job's
//     failed state, never as a synchronous error to the submitter)
package services

import "errors"

// Validation errors: malformed or out-of-range input. No state is mutated.
var (
	// ErrEmptyText is returned when a synthesis request carries no text.
	ErrEmptyText = errors.New("text is empty")

	// ErrTextTooLong is returned when the text exceeds the configured
	// maximum character count.
	ErrTextTooLong = errors.New("text too long")

	// ErrSpeedOutOfRange is returned when speed is outside [0.1, 3.0].
	ErrSpeedOutOfRange = errors.New("speed must be within [0.1, 3.0]")

	// ErrPitchOutOfRange is returned when pitch is outside [0.1, 3.0].
	ErrPitchOutOfRange = errors.New("pitch must be within [0.1, 3.0]")

	// ErrVolumeOutOfRange is returned when volume is outside [0.0, 3.0].
	ErrVolumeOutOfRange = errors.New("volume must be within [0.0, 3.0]")

	// ErrBadFormat is returned for an unsupported output format.
	ErrBadFormat = errors.New("unsupported output format")

	// ErrBadSampleRate is returned for a non-positive sample rate.
	ErrBadSampleRate = errors.New("sample rate must be positive")

	// ErrBadLanguage is returned for a malformed BCP-47 language tag.
	ErrBadLanguage = errors.New("invalid language tag")

	// ErrBadProgress is returned when a progress fraction is outside [0,1]
	// or lower than the previously recorded value.
	ErrBadProgress = errors.New("progress must be non-decreasing within [0,1]")

	// ErrEmptyVoiceName is returned when registering a voice without a name.
	ErrEmptyVoiceName = errors.New("voice name is empty")
)

// Reference errors: a foreign identifier does not resolve. No mutation.
var (
	// ErrUserNotFound indicates the submitting user is unknown to the
	// identity store.
	ErrUserNotFound = errors.New("user not found")

	// ErrVoiceModelNotFound indicates that the requested voice model does
	// not exist or is not accessible.
	ErrVoiceModelNotFound = errors.New("voice model not found")

	// ErrJobNotFound indicates that the requested job does not exist or is
	// not accessible to the current user.
	ErrJobNotFound = errors.New("synthesis job not found")
)

// State and cache errors.
var (
	// ErrInvalidState is returned when a lifecycle operation is illegal for
	// the job's current state (e.g., completing a cancelled job). The job
	// is left untouched; callers must re-read to observe the actual state.
	ErrInvalidState = errors.New("operation invalid for current job state")

	// ErrCacheMiss is returned by cache lookups when no live entry holds
	// the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheConflict is returned when an insert loses the unique-key race.
	// It is recoverable: the loser re-looks-up and adopts the winner's entry.
	ErrCacheConflict = errors.New("cache entry already exists for key")
)

// validationErrs is the closed set used by IsValidationErr.
var validationErrs = []error{
	ErrEmptyText, ErrTextTooLong,
	ErrSpeedOutOfRange, ErrPitchOutOfRange, ErrVolumeOutOfRange,
	ErrBadFormat, ErrBadSampleRate, ErrBadLanguage, ErrBadProgress,
	ErrEmptyVoiceName,
}

// IsValidationErr reports whether err belongs to the validation class, so
// handlers can map the whole class to one HTTP status without enumerating
// every sentinel.
func IsValidationErr(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// IsReferenceErr reports whether err is a dangling-identifier error.
func IsReferenceErr(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrVoiceModelNotFound) ||
		errors.Is(err, ErrJobNotFound)
}
