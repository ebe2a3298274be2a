package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/observability"
	"github.com/voxify/voxify-backend/internal/textproc"
)

// EngineRequest carries everything the inference engine needs to render a
// job. Progress, when non-nil, is invoked with fractions in [0,1] as the
// engine reports them.
type EngineRequest struct {
	JobID         string
	Text          string
	Language      string
	EngineVoiceID string
	Config        domain.SynthesisConfig
	Progress      func(fraction float64)
}

// Engine renders text to audio. engine.HTTPEngine implements it against
// the inference sidecar; tests substitute fakes.
type Engine interface {
	Synthesize(ctx context.Context, req EngineRequest) (domain.SynthesisOutput, error)
}

// SynthesisService orchestrates a synthesis request end to end: submit the
// job, consult the cache, and either finish the job from the cached result
// or hand it to a background worker that drives the engine and publishes
// the result to the cache.
type SynthesisService struct {
	Jobs   *JobService
	Cache  *CacheService
	Voices *VoiceService
	Engine Engine

	// Node identifies this instance in job records.
	Node string

	// CachePermanent marks newly produced cache entries permanent.
	CachePermanent bool

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewSynthesisService builds the orchestrator with at most workers
// concurrent engine renders (minimum 1).
func NewSynthesisService(jobs *JobService, cache *CacheService, voices *VoiceService, eng Engine, node string, workers int, cachePermanent bool) *SynthesisService {
	if workers < 1 {
		workers = 1
	}
	return &SynthesisService{
		Jobs:           jobs,
		Cache:          cache,
		Voices:         voices,
		Engine:         eng,
		Node:           node,
		CachePermanent: cachePermanent,
		sem:            make(chan struct{}, workers),
	}
}

// Synthesize accepts a synthesis request. It creates the job, then checks
// the cache using fingerprints derived from the persisted request facts.
// On a hit the job completes immediately from the cached result and is
// returned already terminal; on a miss the job is returned pending and a
// background worker renders it.
func (s *SynthesisService) Synthesize(ctx context.Context, userID, voiceModelID, text, lang string, cfg domain.SynthesisConfig) (*domain.SynthesisJob, error) {
	job, err := s.Jobs.Submit(ctx, userID, voiceModelID, text, lang, cfg)
	if err != nil {
		return nil, err
	}

	key := textproc.KeyFor(job.TextContent, job.VoiceModelID, s.Jobs.Config(job))

	entry, err := s.Cache.Lookup(ctx, key)
	switch {
	case err == nil:
		if err := s.Jobs.CompleteFromCache(ctx, job.ID, entry); err != nil {
			// Lost a race against cancel; the hit was still counted.
			if !errors.Is(err, ErrInvalidState) {
				return nil, err
			}
		}
		return s.Jobs.Get(ctx, job.ID)
	case errors.Is(err, ErrCacheMiss):
		s.wg.Add(1)
		go s.run(job, key)
		return job, nil
	default:
		return nil, err
	}
}

// run renders one job on a background worker. It must not inherit the
// request context: the job outlives the HTTP request that submitted it.
func (s *SynthesisService) run(job *domain.SynthesisJob, key textproc.CacheKey) {
	defer s.wg.Done()
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx := context.Background()
	logger := log.With().Str("job_id", job.ID).Str("voice_model_id", job.VoiceModelID).Logger()

	if err := s.Jobs.BeginProcessing(ctx, job.ID, s.Node); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Cancelled (or otherwise finished) while queued.
			logger.Debug().Msg("job left pending state before processing")
			return
		}
		logger.Error().Err(err).Msg("begin processing failed")
		return
	}

	voice, err := s.Voices.Get(ctx, job.VoiceModelID, job.UserID)
	if err != nil {
		s.fail(ctx, logger, job.ID, "voice model unavailable: "+err.Error())
		return
	}

	req := EngineRequest{
		JobID:         job.ID,
		Text:          job.TextContent,
		Language:      job.Language,
		EngineVoiceID: voice.EngineVoiceID,
		Config:        s.Jobs.Config(job),
		Progress: func(fraction float64) {
			if err := s.Jobs.RecordProgress(ctx, job.ID, fraction); err != nil {
				logger.Debug().Err(err).Float64("fraction", fraction).Msg("progress update dropped")
			}
		},
	}

	start := time.Now()
	out, err := s.Engine.Synthesize(ctx, req)
	observability.EngineSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, logger, job.ID, err.Error())
		return
	}

	// Publish before completing the job, so a completed job never points at
	// a result the cache has not seen. A conflict means another producer
	// won the key; this job still completes with its own output.
	if _, err := s.Cache.Insert(ctx, key, out, s.CachePermanent); err != nil {
		if errors.Is(err, ErrCacheConflict) {
			logger.Debug().Msg("cache entry already published by concurrent producer")
		} else {
			logger.Error().Err(err).Msg("cache insert failed")
		}
	}

	if err := s.Jobs.Complete(ctx, job.ID, out); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Cancelled mid-render. The cache entry stays; the work is done
			// and future requests may as well benefit.
			logger.Info().Msg("job cancelled during rendering, result cached")
			return
		}
		logger.Error().Err(err).Msg("complete failed")
	}
}

// fail marks the job failed, tolerating a concurrent cancel.
func (s *SynthesisService) fail(ctx context.Context, logger zerolog.Logger, jobID, msg string) {
	if err := s.Jobs.Fail(ctx, jobID, msg); err != nil && !errors.Is(err, ErrInvalidState) {
		logger.Error().Err(err).Msg("fail transition failed")
		return
	}
	logger.Warn().Str("reason", msg).Msg("synthesis job failed")
}

// Wait blocks until every in-flight render has finished. Called on
// shutdown after the HTTP server stops accepting requests.
func (s *SynthesisService) Wait() {
	s.wg.Wait()
}
