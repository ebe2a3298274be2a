// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the VoiceModel
// registry.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxify/voxify-backend/internal/domain"
)

// CreateVoiceModel inserts a new voice row owned by userID. The id is a
// randomly generated UUID and CreatedAt is set to UTC.
func CreateVoiceModel(ctx context.Context, db *gorm.DB, userID, name, language, engineVoiceID string) (*domain.VoiceModel, error) {
	v := &domain.VoiceModel{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Language:      language,
		EngineVoiceID: engineVoiceID,
		Ready:         true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// GetVoiceModel fetches a voice by id, or ErrNotFound.
func GetVoiceModel(ctx context.Context, db *gorm.DB, id string) (*domain.VoiceModel, error) {
	var v domain.VoiceModel
	if err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVoiceModelForUser fetches a voice by id scoped to its owner, or
// ErrNotFound.
func GetVoiceModelForUser(ctx context.Context, db *gorm.DB, id, userID string) (*domain.VoiceModel, error) {
	var v domain.VoiceModel
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVoiceModels returns all voices belonging to userID, most recent first.
func ListVoiceModels(ctx context.Context, db *gorm.DB, userID string) ([]domain.VoiceModel, error) {
	var out []domain.VoiceModel
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// VoiceModelExists reports whether a voice with the given id exists (soft
// deleted rows excluded).
func VoiceModelExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.VoiceModel{}).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}

// DeleteVoiceModel removes a voice owned by userID. The row is hard-deleted
// (Unscoped) because its dependent jobs are removed in the same transaction
// and a soft-deleted voice must not keep holding the unique engine slot.
// Returns ErrNotFound when no row matched.
func DeleteVoiceModel(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Unscoped().
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.VoiceModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
