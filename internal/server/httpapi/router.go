// Package httpapi exposes the ceremony services over HTTP with JSON bodies.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"passkeyd/internal/logging"
)

// NewRouter wires the ceremony endpoints onto a gorilla/mux router.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	r.HandleFunc("/webauthn/register/options", h.RegisterOptions).Methods("POST")
	r.HandleFunc("/webauthn/register/verify", h.RegisterVerify).Methods("POST")
	r.HandleFunc("/webauthn/login/options", h.LoginOptions).Methods("POST")
	r.HandleFunc("/webauthn/login/verify", h.LoginVerify).Methods("POST")
	r.HandleFunc("/webauthn/logout", h.Logout).Methods("POST")
	r.HandleFunc("/me", h.Me).Methods("GET")
	return r
}

// Handlers carries the services the endpoints delegate to.
type Handlers struct {
	ceremonies CeremonyProvider
	sessions   SessionProvider
	logger     logging.Logger
}

func NewHandlers(ceremonies CeremonyProvider, sessions SessionProvider, logger logging.Logger) *Handlers {
	return &Handlers{ceremonies: ceremonies, sessions: sessions, logger: logger}
}
