// Package engine implements the client for the synthesis inference sidecar.
//
// The sidecar exposes a single POST /synthesize endpoint and answers with a
// newline-delimited JSON stream: zero or more progress events followed by
// exactly one result event carrying the rendered audio (base64) and the
// aligned timestamps. Streaming keeps long renders observable without a
// second polling channel.
package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/services"
)

// BlobStore persists rendered audio. storage.FileStore implements it.
type BlobStore interface {
	Save(ctx context.Context, name string, data []byte) (path string, size int64, err error)
}

// HTTPEngine talks to the inference sidecar over HTTP.
type HTTPEngine struct {
	// BaseURL of the sidecar, e.g. "http://localhost:9090".
	BaseURL string
	// Client used for requests. Its Timeout bounds the whole render.
	Client *http.Client
	// Store receives the decoded audio payload.
	Store BlobStore
}

// NewHTTPEngine builds a client with the given per-render timeout.
func NewHTTPEngine(baseURL string, timeout time.Duration, store BlobStore) *HTTPEngine {
	return &HTTPEngine{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		Store:   store,
	}
}

type synthesizeRequest struct {
	JobID      string  `json:"job_id"`
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	VoiceID    string  `json:"voice_id"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Speed      float64 `json:"speed"`
	Pitch      float64 `json:"pitch"`
	Volume     float64 `json:"volume"`
}

// event is one line of the sidecar's NDJSON response. Type is "progress"
// or "result"; the remaining fields are populated per type.
type event struct {
	Type     string  `json:"type"`
	Fraction float64 `json:"fraction,omitempty"`

	AudioBase64        string            `json:"audio_base64,omitempty"`
	Duration           float64           `json:"duration,omitempty"`
	WordTimestamps     domain.Timestamps `json:"word_timestamps,omitempty"`
	SyllableTimestamps domain.Timestamps `json:"syllable_timestamps,omitempty"`
	PhonemeTimestamps  domain.Timestamps `json:"phoneme_timestamps,omitempty"`

	Error string `json:"error,omitempty"`
}

// Synthesize implements services.Engine. It posts the render request,
// relays progress events to req.Progress, stores the decoded audio, and
// returns the output descriptor.
func (e *HTTPEngine) Synthesize(ctx context.Context, req services.EngineRequest) (domain.SynthesisOutput, error) {
	var out domain.SynthesisOutput

	body, err := json.Marshal(synthesizeRequest{
		JobID:      req.JobID,
		Text:       req.Text,
		Language:   req.Language,
		VoiceID:    req.EngineVoiceID,
		Format:     req.Config.Format,
		SampleRate: req.Config.SampleRate,
		Speed:      req.Config.Speed,
		Pitch:      req.Config.Pitch,
		Volume:     req.Config.Volume,
	})
	if err != nil {
		return out, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := e.Client.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return out, fmt.Errorf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var ev event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return out, errors.New("engine stream ended without a result")
			}
			return out, fmt.Errorf("engine stream: %w", err)
		}

		switch ev.Type {
		case "progress":
			if req.Progress != nil && ev.Fraction >= 0 && ev.Fraction <= 1 {
				req.Progress(ev.Fraction)
			}
		case "result":
			return e.finish(ctx, req, ev)
		case "error":
			return out, fmt.Errorf("engine: %s", ev.Error)
		default:
			// Unknown event types are skipped for forward compatibility.
		}
	}
}

// finish decodes and stores the audio from a result event.
func (e *HTTPEngine) finish(ctx context.Context, req services.EngineRequest, ev event) (domain.SynthesisOutput, error) {
	var out domain.SynthesisOutput

	audio, err := base64.StdEncoding.DecodeString(ev.AudioBase64)
	if err != nil {
		return out, fmt.Errorf("engine audio payload: %w", err)
	}
	if len(audio) == 0 {
		return out, errors.New("engine returned empty audio")
	}
	if ev.Duration <= 0 {
		return out, errors.New("engine returned non-positive duration")
	}

	name := req.JobID + "." + req.Config.Format
	path, size, err := e.Store.Save(ctx, name, audio)
	if err != nil {
		return out, fmt.Errorf("store audio: %w", err)
	}

	out.OutputPath = path
	out.OutputSize = size
	out.Duration = ev.Duration
	out.WordTimestamps = ev.WordTimestamps
	out.SyllableTimestamps = ev.SyllableTimestamps
	out.PhonemeTimestamps = ev.PhonemeTimestamps
	return out, nil
}
