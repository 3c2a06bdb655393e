package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/service-portal/internal/adapter/api/middleware"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/usecase"
)

// AccessHandler serves signup, OTP verification, login and logout.
// Every change of identity starts a new workflow session.
type AccessHandler struct {
	uc           *usecase.AccessUseCase
	session      middleware.SessionCookie
	tokenTTL     time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewAccessHandler(uc *usecase.AccessUseCase, session middleware.SessionCookie, tokenTTL time.Duration, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{uc: uc, session: session, tokenTTL: tokenTTL, secureCookie: session.Secure, logger: logger}
}

func (h *AccessHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.Signup)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/resend-otp", h.ResendOTP)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

// Signup handles POST /access/signup.
func (h *AccessHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}
	if err := h.uc.StartSignup(r.Context(), form["phone"], form["national_id"], form["password"]); err != nil {
		h.writeError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "otp_sent",
		"phone":  usecase.Digits(form["phone"]),
	})
}

// ResendOTP handles POST /access/resend-otp.
func (h *AccessHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}
	if err := h.uc.ResendCode(r.Context(), form["phone"]); err != nil {
		h.writeError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "otp_sent"})
}

// VerifyOTP handles POST /access/verify-otp.
func (h *AccessHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}
	result, err := h.uc.VerifySignup(r.Context(), form["phone"], form["code"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.setTokenCookie(w, result.Token, h.tokenTTL)
	h.session.Rotate(w)
	respondWithJSON(w, http.StatusCreated, result)
}

// Login handles POST /access/login.
func (h *AccessHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}
	result, err := h.uc.Login(r.Context(), form["phone"], form["password"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.setTokenCookie(w, result.Token, h.tokenTTL)
	h.session.Rotate(w)
	respondWithJSON(w, http.StatusOK, result)
}

// Logout handles POST /access/logout by clearing the token cookie and
// starting a new workflow session.
func (h *AccessHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, "", -1)
	h.session.Rotate(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccessHandler) setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AccessHandler) writeError(w http.ResponseWriter, err error) {
	var (
		validation domain.ValidationErrors
		cooldown   *usecase.CooldownError
	)
	switch {
	case errors.As(err, &validation):
		respondValidation(w, validation)
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", cooldownSeconds(cooldown.Remaining))
		respondWithError(w, http.StatusTooManyRequests, cooldown.Error())
	case errors.Is(err, domain.ErrDuplicateEntry):
		respondWithError(w, http.StatusConflict, "phone number is already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "invalid phone number or password")
	case errors.Is(err, domain.ErrOTPInvalid):
		respondWithError(w, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, domain.ErrSignupNotPending):
		respondWithError(w, http.StatusBadRequest, "no pending signup for this phone number")
	case errors.Is(err, domain.ErrNotificationFailed):
		respondWithError(w, http.StatusBadGateway, "could not send the verification code, try again later")
	default:
		h.logger.Error("access request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func cooldownSeconds(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
