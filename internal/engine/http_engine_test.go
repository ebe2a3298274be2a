package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/services"
)

// memStore records saved blobs in memory.
type memStore struct {
	saved map[string][]byte
}

func (m *memStore) Save(_ context.Context, name string, data []byte) (string, int64, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = data
	return "ab/" + name, int64(len(data)), nil
}

func testRequest() services.EngineRequest {
	return services.EngineRequest{
		JobID:         "job-1",
		Text:          "hello",
		Language:      "en",
		EngineVoiceID: "xtts/narrator",
		Config: domain.SynthesisConfig{
			Format:     "wav",
			SampleRate: 24000,
			Speed:      1,
			Pitch:      1,
			Volume:     1,
		},
	}
}

func TestSynthesize_StreamsProgressAndResult(t *testing.T) {
	audio := []byte("RIFF....fake wav bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/synthesize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["text"] != "hello" || req["voice_id"] != "xtts/narrator" {
			t.Errorf("request body = %v", req)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"type":"progress","fraction":0.25}`)
		fmt.Fprintln(w, `{"type":"progress","fraction":0.75}`)
		fmt.Fprintln(w, `{"type":"heartbeat"}`)
		fmt.Fprintf(w, `{"type":"result","audio_base64":%q,"duration":1.5,"word_timestamps":[{"label":"hello","start":0,"end":1.5}]}`+"\n",
			base64.StdEncoding.EncodeToString(audio))
	}))
	defer srv.Close()

	store := &memStore{}
	eng := NewHTTPEngine(srv.URL, 5*time.Second, store)

	req := testRequest()
	var fractions []float64
	req.Progress = func(f float64) { fractions = append(fractions, f) }

	out, err := eng.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.OutputPath != "ab/job-1.wav" {
		t.Fatalf("output path = %q", out.OutputPath)
	}
	if out.OutputSize != int64(len(audio)) {
		t.Fatalf("output size = %d, want %d", out.OutputSize, len(audio))
	}
	if out.Duration != 1.5 {
		t.Fatalf("duration = %v", out.Duration)
	}
	if len(out.WordTimestamps) != 1 || out.WordTimestamps[0].Label != "hello" {
		t.Fatalf("word timestamps = %+v", out.WordTimestamps)
	}
	if len(fractions) != 2 || fractions[0] != 0.25 || fractions[1] != 0.75 {
		t.Fatalf("progress fractions = %v", fractions)
	}
	if string(store.saved["job-1.wav"]) != string(audio) {
		t.Fatalf("stored audio mismatch")
	}
}

func TestSynthesize_ErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"type":"progress","fraction":0.5}`)
		fmt.Fprintln(w, `{"type":"error","error":"voice weights missing"}`)
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second, &memStore{})
	_, err := eng.Synthesize(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "voice weights missing") {
		t.Fatalf("err = %v, want engine error message", err)
	}
}

func TestSynthesize_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second, &memStore{})
	_, err := eng.Synthesize(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestSynthesize_StreamEndsWithoutResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"type":"progress","fraction":0.5}`)
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second, &memStore{})
	_, err := eng.Synthesize(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "without a result") {
		t.Fatalf("err = %v, want truncated-stream error", err)
	}
}

func TestSynthesize_RejectsBadResult(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"empty audio", `{"type":"result","audio_base64":"","duration":1}`, "empty audio"},
		{"bad base64", `{"type":"result","audio_base64":"not base64!!","duration":1}`, "audio payload"},
		{"zero duration", `{"type":"result","audio_base64":"UklGRg==","duration":0}`, "duration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintln(w, tc.line)
			}))
			defer srv.Close()

			eng := NewHTTPEngine(srv.URL, 5*time.Second, &memStore{})
			_, err := eng.Synthesize(context.Background(), testRequest())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}
