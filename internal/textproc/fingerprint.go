// Package textproc provides deterministic fingerprinting of synthesis
// request content and small text statistics helpers.
//
// Fingerprints are SHA-256 digests in lowercase hex. The text fingerprint
// covers the exact bytes of the submitted text (no trimming, no case
// folding) so the producer and every later lookup hash identical input. The
// config fingerprint covers only the fields that affect audible output,
// serialized in a fixed field order, so semantically identical requests
// collide on the same cache key regardless of incidental field ordering in
// the transport payload.
package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/voxify/voxify-backend/internal/domain"
)

// Fingerprint returns the lowercase hex SHA-256 digest of the exact bytes of s.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ConfigFingerprint hashes the canonical serialization of the audible
// configuration fields. The serialization order is fixed; changing it would
// silently invalidate every cached entry, so don't.
func ConfigFingerprint(c domain.SynthesisConfig) string {
	canon := fmt.Sprintf(
		"format=%s&sample_rate=%d&speed=%.4f&pitch=%.4f&volume=%.4f",
		c.Format, c.SampleRate, c.Speed, c.Pitch, c.Volume,
	)
	return Fingerprint(canon)
}

// CacheKey is the composite lookup key of the synthesis cache: the triple
// that is unique-together on the synthesis_cache table.
type CacheKey struct {
	TextFingerprint   string
	VoiceModelID      string
	ConfigFingerprint string
}

// KeyFor derives the cache key for a (text, voice, config) request. The
// config must already be normalized; callers derive keys from the facts
// persisted on the job so producer and consumer hash identical input.
func KeyFor(text, voiceModelID string, cfg domain.SynthesisConfig) CacheKey {
	return CacheKey{
		TextFingerprint:   Fingerprint(text),
		VoiceModelID:      voiceModelID,
		ConfigFingerprint: ConfigFingerprint(cfg),
	}
}

// wordRE matches runs of letters/digits in any script.
var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// CountWords returns the number of letter/digit runs in s.
func CountWords(s string) int {
	return len(wordRE.FindAllStringIndex(s, -1))
}

// CountChars returns the number of runes in s (not bytes).
func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}
