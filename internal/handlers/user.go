package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/rs/zerolog"
)

const (
	sourceProvider = "1confirmed"
	sourceLocal    = "local"
)

type UpdateProfileRequest struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Language *string `json:"language"`
}

// GetUserProfile reads the provider profile and falls back to the local copy
// when the provider cannot answer.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	user := middleware.CurrentUser(ctx)

	if user.HasConfirmedAccount() {
		cu, err := h.Confirmed.CurrentUser(ctx, user.ConfirmedToken)
		if err == nil {
			services.ApplyConfirmedUser(user, cu)
			if err := h.Users.Save(ctx, user); err != nil {
				log.Warn().Err(err).Msg("profile: failed to store provider snapshot")
			}

			resp := user.Response("")
			if cu.Name != "" {
				resp.Name = cu.Name
			}
			if cu.Email != "" {
				resp.Email = cu.Email
			}
			if cu.Phone != "" {
				resp.Phone = cu.Phone
			}
			writeData(w, http.StatusOK, "Profile retrieved successfully from 1Confirmed", resp)
			return
		}
		log.Warn().Err(err).Msg("profile: 1Confirmed read failed, using local data")
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Profile retrieved from local data (1Confirmed unavailable)",
		Data:    user.Response(""),
		Warning: "1Confirmed service temporarily unavailable",
	})
}

func (h *Handler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	user := middleware.CurrentUser(ctx)

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "Name and phone are required")
		return
	}

	user.Name = req.Name
	user.Phone = req.Phone
	if req.Language != nil {
		lang := strings.TrimSpace(*req.Language)
		user.Language = &lang
	}

	if user.HasConfirmedAccount() {
		if err := h.syncProvider(ctx, user); err != nil {
			log.Warn().Err(err).Msg("profile update: could not sync with 1Confirmed")
		}
	}

	if err := h.Users.Save(ctx, user); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "User with this phone number already exists")
			return
		}
		log.Error().Err(err).Msg("profile update: save user")
		writeError(w, http.StatusInternalServerError, "Server error while updating profile")
		return
	}

	writeData(w, http.StatusOK, "Profile updated successfully", map[string]interface{}{
		"id":       user.ID.Hex(),
		"name":     user.Name,
		"email":    user.Email,
		"phone":    user.Phone,
		"language": user.Language,
		"credit":   user.Credit,
		"roles":    user.Roles,
	})
}

func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.CurrentUser(ctx)

	if user.HasConfirmedAccount() {
		readCtx := ctx
		if h.CreditTimeout > 0 {
			var cancel context.CancelFunc
			readCtx, cancel = context.WithTimeout(ctx, h.CreditTimeout)
			defer cancel()
		}
		cu, err := h.Confirmed.CurrentUser(readCtx, user.ConfirmedToken)
		if err == nil {
			if credit := cu.CreditValue(); credit > 0 && credit != user.Credit {
				user.Credit = credit
				if err := h.Users.Save(ctx, user); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Msg("credit: failed to store provider balance")
				}
			}
			writeData(w, http.StatusOK, "Credit balance retrieved from 1Confirmed", map[string]interface{}{
				"credit": user.Credit,
				"source": sourceProvider,
			})
			return
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("credit: 1Confirmed read failed")
	}

	writeData(w, http.StatusOK, "Credit balance retrieved from local data", map[string]interface{}{
		"credit": user.Credit,
		"source": sourceLocal,
	})
}

// LinkConfirmed attaches an existing 1Confirmed account to the caller after
// checking the token against the provider.
func (h *Handler) LinkConfirmed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.CurrentUser(ctx)

	var req confirmedTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token := strings.TrimSpace(req.ConfirmedToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "1Confirmed token is required")
		return
	}

	cu, err := h.Confirmed.CurrentUser(ctx, token)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("link: token rejected")
		writeError(w, http.StatusBadRequest, "Invalid 1Confirmed token or API error")
		return
	}

	previous := user.ConfirmedToken
	user.ConfirmedToken = token
	services.ApplyConfirmedUser(user, cu)
	if err := h.Users.Save(ctx, user); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "This 1Confirmed account is already linked to another user")
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("link: save user")
		writeError(w, http.StatusInternalServerError, "Server error while linking 1Confirmed account")
		return
	}
	if previous != token {
		h.forgetProviderUser(ctx, previous)
	}

	writeData(w, http.StatusOK, "1Confirmed account linked successfully", map[string]interface{}{
		"confirmed_user_id": user.ConfirmedUserID,
		"credit":            user.Credit,
	})
}

// SyncConfirmed refreshes the caller from the provider's profile endpoint,
// bypassing the cache.
func (h *Handler) SyncConfirmed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.CurrentUser(ctx)

	if !user.HasConfirmedAccount() {
		writeError(w, http.StatusBadRequest, "No 1Confirmed token found")
		return
	}
	if err := h.syncProvider(ctx, user); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("sync: 1Confirmed profile failed")
		writeError(w, http.StatusBadRequest, "Failed to sync with 1Confirmed")
		return
	}
	if err := h.Users.Save(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("sync: save user")
		writeError(w, http.StatusInternalServerError, "Server error during sync")
		return
	}
	h.forgetProviderUser(ctx, user.ConfirmedToken)

	writeData(w, http.StatusOK, "Successfully synced with 1Confirmed", user.Response(""))
}

// syncProvider copies the provider profile onto user without saving it.
func (h *Handler) syncProvider(ctx context.Context, user *models.User) error {
	cu, err := h.Confirmed.Profile(ctx, user.ConfirmedToken)
	if err != nil {
		return err
	}
	services.ApplyConfirmedUser(user, cu)
	return nil
}
