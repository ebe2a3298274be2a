package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/services"
)

const (
	testVoiceID = "3e0170e3-59b2-4a31-9aeb-121a65ecb54e"
	testJobID   = "6a1b38c1-74d1-4b3e-b8ff-0a4f3f6f2a10"
)

//
// Fakes
//

type fakeSynth struct {
	job     *domain.SynthesisJob
	err     error
	lastCfg domain.SynthesisConfig
}

func (f *fakeSynth) Synthesize(_ context.Context, userID, voiceModelID, text, lang string, cfg domain.SynthesisConfig) (*domain.SynthesisJob, error) {
	f.lastCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	if f.job != nil {
		return f.job, nil
	}
	return &domain.SynthesisJob{
		ID:           testJobID,
		UserID:       userID,
		VoiceModelID: voiceModelID,
		TextContent:  text,
		Language:     lang,
		Status:       domain.JobStatusPending,
	}, nil
}

type fakeJobs struct {
	jobs      map[string]*domain.SynthesisJob
	cancelErr error
	usage     *repo.UserUsage
	listItems []domain.SynthesisJob
	listTotal int64
}

func (f *fakeJobs) GetForUser(_ context.Context, jobID, userID string) (*domain.SynthesisJob, error) {
	if j, ok := f.jobs[jobID]; ok && j.UserID == userID {
		return j, nil
	}
	return nil, services.ErrJobNotFound
}

func (f *fakeJobs) ListPage(_ context.Context, _ string, _, _ int) ([]domain.SynthesisJob, int64, error) {
	return f.listItems, f.listTotal, nil
}

func (f *fakeJobs) Cancel(_ context.Context, jobID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if j, ok := f.jobs[jobID]; ok {
		j.Status = domain.JobStatusCancelled
		return nil
	}
	return services.ErrJobNotFound
}

func (f *fakeJobs) Usage(_ context.Context, _ string) (*repo.UserUsage, error) {
	if f.usage != nil {
		return f.usage, nil
	}
	return &repo.UserUsage{}, nil
}

//
// Helpers
//

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/synthesize", h.Synthesize)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.POST("/jobs/:id/cancel", h.CancelJob)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

//
// Synthesize
//

func TestSynthesize_Accepted(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, &fakeJobs{}, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/synthesize",
		`{"text":"hello","voice_model_id":"`+testVoiceID+`","speed":1.5}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Job == nil || resp.Job.ID != testJobID {
		t.Fatalf("job = %+v", resp.Job)
	}
	if resp.Job.UserID != "u1" {
		t.Fatalf("user = %q, want header value", resp.Job.UserID)
	}
	if synth.lastCfg.Speed != 1.5 {
		t.Fatalf("speed = %v, want 1.5", synth.lastCfg.Speed)
	}
	// Absent volume defaults to 1.0 at the transport layer.
	if synth.lastCfg.Volume != 1.0 {
		t.Fatalf("volume = %v, want 1.0", synth.lastCfg.Volume)
	}
}

func TestSynthesize_ExplicitMuteVolume(t *testing.T) {
	synth := &fakeSynth{}
	h := New(synth, &fakeJobs{}, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/synthesize",
		`{"text":"hello","voice_model_id":"`+testVoiceID+`","volume":0.0}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if synth.lastCfg.Volume != 0.0 {
		t.Fatalf("volume = %v, want 0.0 (mute preserved)", synth.lastCfg.Volume)
	}
}

func TestSynthesize_BadRequests(t *testing.T) {
	h := New(&fakeSynth{}, &fakeJobs{}, nil, nil)
	r := newTestRouter(h)

	cases := []struct {
		name string
		body string
	}{
		{"missing text", `{"voice_model_id":"` + testVoiceID + `"}`},
		{"missing voice", `{"text":"hello"}`},
		{"voice not a uuid", `{"text":"hello","voice_model_id":"nope"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/synthesize", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != ErrCodeBadRequest {
				t.Fatalf("code = %q", e.Code)
			}
		})
	}
}

func TestSynthesize_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", services.ErrSpeedOutOfRange, http.StatusBadRequest, ErrCodeBadRequest},
		{"voice missing", services.ErrVoiceModelNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"user missing", services.ErrUserNotFound, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"engine down", errors.New("engine unreachable"), http.StatusInternalServerError, ErrCodeSynthesisFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeSynth{err: tc.err}, &fakeJobs{}, nil, nil)
			r := newTestRouter(h)

			w := doJSON(t, r, http.MethodPost, "/synthesize",
				`{"text":"hello","voice_model_id":"`+testVoiceID+`"}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
			}
		})
	}
}

func TestSynthesize_CacheHitReturnsCompletedJob(t *testing.T) {
	hit := &domain.SynthesisJob{
		ID:       testJobID,
		UserID:   "u1",
		Status:   domain.JobStatusCompleted,
		CacheHit: true,
	}
	h := New(&fakeSynth{job: hit}, &fakeJobs{}, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/synthesize",
		`{"text":"hello","voice_model_id":"`+testVoiceID+`"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var resp JobResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Job.Status != domain.JobStatusCompleted || !resp.Job.CacheHit {
		t.Fatalf("job = %+v, want completed cache hit", resp.Job)
	}
}

//
// GetJob
//

func TestGetJob(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*domain.SynthesisJob{
		testJobID: {ID: testJobID, UserID: "u1", Status: domain.JobStatusProcessing, Progress: 0.4},
	}}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/jobs/"+testJobID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp JobResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Job.Progress != 0.4 {
		t.Fatalf("progress = %v", resp.Job.Progress)
	}

	w = doJSON(t, r, http.MethodGet, "/jobs/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/jobs/6a1b38c1-74d1-4b3e-b8ff-000000000000", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestGetJob_OtherUsersJobIsHidden(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*domain.SynthesisJob{
		testJobID: {ID: testJobID, UserID: "someone-else"},
	}}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/jobs/"+testJobID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

//
// ListJobs
//

func TestListJobs_PaginationEnvelope(t *testing.T) {
	jobs := &fakeJobs{
		listItems: []domain.SynthesisJob{{ID: "a"}, {ID: "b"}},
		listTotal: 45,
	}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/jobs?page=2&page_size=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListJobsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("jobs = %d", len(resp.Jobs))
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 20 || p.Total != 45 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination = %+v", p)
	}
}

func TestListJobs_ClampsPagination(t *testing.T) {
	jobs := &fakeJobs{listTotal: 1, listItems: []domain.SynthesisJob{{ID: "a"}}}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/jobs?page=-3&page_size=9999", "")
	var resp ListJobsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Pagination.Page != 1 {
		t.Fatalf("page = %d, want clamped to 1", resp.Pagination.Page)
	}
	if resp.Pagination.PageSize != 100 {
		t.Fatalf("page_size = %d, want capped at 100", resp.Pagination.PageSize)
	}
}

//
// CancelJob
//

func TestCancelJob(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*domain.SynthesisJob{
		testJobID: {ID: testJobID, UserID: "u1", Status: domain.JobStatusPending},
	}}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/jobs/"+testJobID+"/cancel", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp JobResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Job.Status != domain.JobStatusCancelled {
		t.Fatalf("status after cancel = %q", resp.Job.Status)
	}
}

func TestCancelJob_TerminalConflict(t *testing.T) {
	jobs := &fakeJobs{
		jobs: map[string]*domain.SynthesisJob{
			testJobID: {ID: testJobID, UserID: "u1", Status: domain.JobStatusCompleted},
		},
		cancelErr: services.ErrInvalidState,
	}
	h := New(&fakeSynth{}, jobs, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/jobs/"+testJobID+"/cancel", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeInvalidState {
		t.Fatalf("code = %q, want %q", e.Code, ErrCodeInvalidState)
	}
}

func TestCancelJob_NotFoundAndBadID(t *testing.T) {
	h := New(&fakeSynth{}, &fakeJobs{}, nil, nil)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/jobs/"+testJobID+"/cancel", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/jobs/nope/cancel", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}
