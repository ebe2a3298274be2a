// Voice model HTTP handlers.
//
// This file exposes REST endpoints for the voice registry:
//   - POST   /voices          (register a trained voice)
//   - GET    /voices          (list the user's voices, ETag support)
//   - GET    /voices/{id}     (fetch one voice)
//   - DELETE /voices/{id}     (remove a voice and its job history)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/services"
)

// VoiceRegistry defines voice lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type VoiceRegistry interface {
	// Create registers a new voice owned by userID.
	Create(ctx context.Context, userID, name, lang, engineVoiceID string) (*domain.VoiceModel, error)
	// Get fetches a voice scoped to its owner.
	Get(ctx context.Context, id, userID string) (*domain.VoiceModel, error)
	// List returns all voices owned by userID.
	List(ctx context.Context, userID string) ([]domain.VoiceModel, error)
	// Delete removes a voice and the jobs that reference it.
	Delete(ctx context.Context, id, userID string) error
}

//
// DTOs
//

// CreateVoiceRequest is the JSON payload for registering a voice.
type CreateVoiceRequest struct {
	// Name labels the voice (1-255 chars).
	Name string `json:"name" binding:"required,min=1,max=255" example:"Narrator warm"`
	// Language is the BCP-47 tag of the training samples (default "en").
	Language string `json:"language,omitempty" example:"en-US"`
	// EngineVoiceID is the engine-side identifier of the trained voice.
	EngineVoiceID string `json:"engine_voice_id" binding:"required" example:"xtts:spk_4411"`
}

// VoiceResponse is the JSON envelope for a single voice.
type VoiceResponse struct {
	Voice *domain.VoiceModel `json:"voice"`
}

// ListVoicesResponse wraps the user's voices.
type ListVoicesResponse struct {
	Voices []domain.VoiceModel `json:"voices"`
}

//
// Handlers
//

// CreateVoice godoc
// @ID          createVoice
// @Summary     Register a voice model
// @Description Registers a trained voice so it can be used for synthesis.
// @Tags        Voices
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the voice"  example(user123)
// @Param       body       body    handlers.CreateVoiceRequest  true  "Voice payload"
//
// @Success     201  {object}  handlers.VoiceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /voices [post]
func (h *Handlers) CreateVoice(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and engine_voice_id required")
		return
	}

	v, err := h.voices.Create(ctx, userID(c), req.Name, req.Language, req.EngineVoiceID)
	if err != nil {
		switch {
		case services.IsValidationErr(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, VoiceResponse{Voice: v})
}

// ListVoices godoc
// @ID          listVoices
// @Summary     List voice models
// @Description Returns the user's registered voices, newest first.
// @Tags        Voices
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     200  {object}  handlers.ListVoicesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /voices [get]
func (h *Handlers) ListVoices(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.VoicesStats(ctx, db, currentUser)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"voices:%s:%d:%d"`, currentUser, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.voices.List(ctx, currentUser)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListVoicesResponse{Voices: items})
}

// GetVoice godoc
// @ID          getVoice
// @Summary     Fetch a voice model
// @Tags        Voices
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the voice"  example(user123)
// @Param       id         path    string  true  "Voice ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.VoiceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Voice not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /voices/{id} [get]
func (h *Handlers) GetVoice(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "voice id must be a UUID")
		return
	}

	v, err := h.voices.Get(ctx, id, userID(c))
	if err != nil {
		switch err {
		case services.ErrVoiceModelNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, VoiceResponse{Voice: v})
}

// DeleteVoice godoc
// @ID          deleteVoice
// @Summary     Delete a voice model
// @Description Removes the voice and every job that referenced it. Cached
// @Description synthesis results are left for the expiry sweep.
// @Tags        Voices
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the voice"  example(user123)
// @Param       id         path    string  true  "Voice ID (UUID)"  format(uuid)
//
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Voice not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /voices/{id} [delete]
func (h *Handlers) DeleteVoice(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "voice id must be a UUID")
		return
	}

	if err := h.voices.Delete(ctx, id, userID(c)); err != nil {
		switch err {
		case services.ErrVoiceModelNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
