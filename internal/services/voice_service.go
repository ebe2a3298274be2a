package services

import (
	"context"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/repo"
)

// VoiceService manages the voice registry and answers the identity checks
// JobService performs on submission. Existence checks are on the hot path
// of every synthesis request, so positive answers are memoized in-process
// for a short TTL; negative answers are never memoized (a voice created a
// moment ago must be usable immediately).
type VoiceService struct {
	DB *gorm.DB

	exists *gocache.Cache
}

// NewVoiceService builds a VoiceService with an existence memo using the
// given TTL. A zero TTL disables memoization.
func NewVoiceService(db *gorm.DB, memoTTL time.Duration) *VoiceService {
	var memo *gocache.Cache
	if memoTTL > 0 {
		memo = gocache.New(memoTTL, 2*memoTTL)
	}
	return &VoiceService{DB: db, exists: memo}
}

// Create registers a new voice for userID. Name must be non-empty; the
// language tag is canonicalized and defaults to "en" when empty.
func (s *VoiceService) Create(ctx context.Context, userID, name, lang, engineVoiceID string) (*domain.VoiceModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyVoiceName
	}
	lang, err := NormalizeLanguageTag(lang)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}
	return repo.CreateVoiceModel(ctx, s.DB, userID, name, lang, engineVoiceID)
}

// Get fetches a voice scoped to its owner.
func (s *VoiceService) Get(ctx context.Context, id, userID string) (*domain.VoiceModel, error) {
	v, err := repo.GetVoiceModelForUser(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoiceModelNotFound
	}
	return v, err
}

// List returns every voice owned by userID, most recent first.
func (s *VoiceService) List(ctx context.Context, userID string) ([]domain.VoiceModel, error) {
	return repo.ListVoiceModels(ctx, s.DB, userID)
}

// Delete removes a voice and all jobs that reference it, in one
// transaction. Cached synthesis results keyed to the voice stay untouched;
// the sweep retires them when their expiry passes. The existence memo is
// invalidated so in-flight submissions fail fast.
func (s *VoiceService) Delete(ctx context.Context, id, userID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.DeleteJobsByVoice(ctx, tx, id); err != nil {
			return err
		}
		return repo.DeleteVoiceModel(ctx, tx, id, userID)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrVoiceModelNotFound
	}
	if err == nil && s.exists != nil {
		s.exists.Delete(id)
	}
	return err
}

// UserExists implements IdentityStore. User identity is asserted by the
// upstream auth layer; a non-blank id is accepted as known here.
func (s *VoiceService) UserExists(_ context.Context, userID string) (bool, error) {
	return strings.TrimSpace(userID) != "", nil
}

// VoiceModelExists implements IdentityStore with a short positive memo in
// front of the registry.
func (s *VoiceService) VoiceModelExists(ctx context.Context, voiceModelID string) (bool, error) {
	if s.exists != nil {
		if _, ok := s.exists.Get(voiceModelID); ok {
			return true, nil
		}
	}
	ok, err := repo.VoiceModelExists(ctx, s.DB, voiceModelID)
	if err != nil {
		return false, err
	}
	if ok && s.exists != nil {
		s.exists.SetDefault(voiceModelID, struct{}{})
	}
	return ok, nil
}
