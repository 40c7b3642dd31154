package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
	"github.com/rs/zerolog"
)

type RegisterRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,intlphone"`
	Password    string `json:"password" validate:"required,min=6"`
	CPassword   string `json:"c_password" validate:"required,eqfield=Password"`
	CountryCode string `json:"country_code" validate:"required,countrycode"`
	Language    string `json:"language" validate:"omitempty,max=10"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type confirmedTokenRequest struct {
	ConfirmedToken string `json:"confirmed_token"`
}

// Register creates the account at 1Confirmed first and mirrors it locally.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = utils.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := utils.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	} else if !errors.Is(err, services.ErrNotFound) {
		log.Error().Err(err).Msg("register: email lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if _, err := h.Users.FindByPhone(ctx, req.Phone); err == nil {
		writeError(w, http.StatusBadRequest, "User with this phone number already exists")
		return
	} else if !errors.Is(err, services.ErrNotFound) {
		log.Error().Err(err).Msg("register: phone lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	countryCode := strings.ToUpper(req.CountryCode)
	cu, err := h.Confirmed.Register(ctx, services.ConfirmedRegistration{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		CPassword:   req.CPassword,
		CountryCode: countryCode,
	})
	if err != nil {
		var pe *services.ProviderError
		if errors.As(err, &pe) {
			log.Warn().Int("provider_status", pe.Status).Str("provider_message", pe.Message).Msg("1Confirmed rejected registration")
			writeJSON(w, http.StatusBadRequest, Response{
				Message: "1Confirmed registration failed",
				Error:   pe.Message,
				Details: pe.Details,
			})
			return
		}
		log.Error().Err(err).Msg("1Confirmed registration unavailable")
		writeError(w, http.StatusInternalServerError, "External service unavailable. Please try again later.")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("register: hash password")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Password:       hash,
		CountryCode:    countryCode,
		ConfirmedToken: cu.Token,
		Credit:         models.DefaultCredit,
	}
	services.ApplyConfirmedUser(user, cu)
	if req.Language != "" {
		lang := req.Language
		user.Language = &lang
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "User with this email or phone number already exists")
			return
		}
		log.Error().Err(err).Msg("register: create user")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.ConfirmedUserID)
	if err != nil {
		log.Error().Err(err).Msg("register: issue token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	writeData(w, http.StatusCreated, "User Created Successfully", user.Response(token))
}

// Login checks the local password hash. Unknown emails and wrong passwords
// get the same answer.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("login: user lookup failed")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if ok, _ := utils.VerifyPassword(req.Password, user.Password); !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.ConfirmedUserID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("login: issue token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, "Login successful", user.Response(token))
}

// Profile returns the caller's locally stored profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	writeData(w, http.StatusOK, "Profile retrieved successfully", user.Response(""))
}

// SyncConfirmedByToken refreshes the local user owning a provider token.
// It is called by the provider side, so it needs no local session.
func (h *Handler) SyncConfirmedByToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var req confirmedTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token := strings.TrimSpace(req.ConfirmedToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Confirmed token required")
		return
	}

	user, err := h.Users.FindByConfirmedToken(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Msg("sync: user lookup failed")
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	cu, err := h.Confirmed.Profile(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("sync: provider profile failed")
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}
	services.ApplyConfirmedUser(user, cu)
	if err := h.Users.Save(ctx, user); err != nil {
		log.Error().Err(err).Msg("sync: save user")
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}
	h.forgetProviderUser(ctx, token)

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "User synchronized with 1Confirmed successfully"})
}
