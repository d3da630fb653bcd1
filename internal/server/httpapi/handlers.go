package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"passkeyd/internal/common"
	"passkeyd/internal/server/models"
	"passkeyd/internal/server/services"
	"passkeyd/internal/webauthn"
)

// CeremonyProvider is the slice of CeremonyService the handlers use.
type CeremonyProvider interface {
	RegistrationOptions(ctx context.Context, username string) (*webauthn.CreationOptions, error)
	FinishRegistration(ctx context.Context, username string, body []byte) (*models.Credential, error)
	AuthenticationOptions(ctx context.Context, username string) (*webauthn.RequestOptions, error)
	FinishAuthentication(ctx context.Context, username string, body []byte) (*services.TokenPair, error)
}

// SessionProvider is the slice of SessionService the handlers use.
type SessionProvider interface {
	ResolveBearer(ctx context.Context, token string) (*models.User, error)
	Revoke(ctx context.Context, token string) error
}

type optionsRequest struct {
	Username string `json:"username"`
}

type verifyRequest struct {
	Username string          `json:"username"`
	Response json.RawMessage `json:"response"`
}

type logoutRequest struct {
	Session string `json:"session"`
}

func (h *Handlers) RegisterOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if !h.decode(w, r, &req) || !h.requireUsername(w, req.Username) {
		return
	}

	opts, err := h.ceremonies.RegistrationOptions(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, opts)
}

func (h *Handlers) RegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) || !h.requireUsername(w, req.Username) {
		return
	}
	if len(req.Response) == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorBody("missing response"))
		return
	}

	if _, err := h.ceremonies.FinishRegistration(r.Context(), req.Username, req.Response); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"verified": true})
}

func (h *Handlers) LoginOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if !h.decode(w, r, &req) || !h.requireUsername(w, req.Username) {
		return
	}

	opts, err := h.ceremonies.AuthenticationOptions(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, opts)
}

func (h *Handlers) LoginVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) || !h.requireUsername(w, req.Username) {
		return
	}
	if len(req.Response) == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorBody("missing response"))
		return
	}

	pair, err := h.ceremonies.FinishAuthentication(r.Context(), req.Username, req.Response)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"verified": true,
		"token":    pair.AccessToken,
		"session":  pair.SessionToken,
	})
}

// Me returns the user behind an Authorization bearer token. Both tokens
// issued at login work: the JWT access token and the opaque session token.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, prefix) {
		h.writeJSON(w, http.StatusUnauthorized, errorBody("no token provided"))
		return
	}

	user, err := h.sessions.ResolveBearer(r.Context(), strings.TrimPrefix(authHeader, prefix))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.writeJSON(w, http.StatusUnauthorized, errorBody("invalid token"))
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        user.ID,
		"username":      user.UserName,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Session == "" {
		h.writeJSON(w, http.StatusBadRequest, errorBody("missing session"))
		return
	}

	if err := h.sessions.Revoke(r.Context(), req.Session); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func (h *Handlers) requireUsername(w http.ResponseWriter, username string) bool {
	if username == "" {
		h.writeJSON(w, http.StatusBadRequest, errorBody("missing username"))
		return false
	}
	return true
}

// writeError maps service errors onto HTTP statuses. Ceremony and security
// violations all collapse to a generic 400 so responses leak nothing about
// stored state; the detail goes to the log instead.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		h.writeJSON(w, http.StatusNotFound, errorBody("user not found"))
	case errors.Is(err, common.ErrorNoCredentials):
		h.writeJSON(w, http.StatusBadRequest, errorBody("no registered credentials"))
	case errors.Is(err, common.ErrorNoValidChallenge):
		h.writeJSON(w, http.StatusBadRequest, errorBody("no valid challenge"))
	case errors.Is(err, common.ErrorDuplicateCredential):
		h.logger.Error(r.Context(), "duplicate credential registration", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody("credential already registered"))
	case errors.Is(err, common.ErrorUnauthorized):
		h.logger.Warn(r.Context(), "rejected ceremony response", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody("verification failed"))
	case errors.Is(err, webauthn.ErrCloneDetected):
		h.logger.Error(r.Context(), "possible cloned authenticator", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody("verification failed"))
	case errors.Is(err, webauthn.ErrSignatureInvalid):
		h.logger.Error(r.Context(), "assertion signature invalid", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody("verification failed"))
	case isCeremonyError(err):
		h.logger.Warn(r.Context(), "rejected ceremony response", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody("verification failed"))
	default:
		h.logger.Error(r.Context(), "internal error", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func isCeremonyError(err error) bool {
	for _, sentinel := range []error{
		webauthn.ErrMalformedCeremonyData,
		webauthn.ErrCeremonyTypeMismatch,
		webauthn.ErrChallengeMismatch,
		webauthn.ErrOriginMismatch,
		webauthn.ErrRPIDMismatch,
		webauthn.ErrFlagsRejected,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
