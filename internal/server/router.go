package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"marketplace-auth/internal/auth"
)

// NewRouter wires the auth endpoints onto a mux router wrapped with otelhttp
// so every request is traced.
func NewRouter(h *AuthHandler, authn *auth.Authenticator) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", Healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1/auth").Subrouter()
	v1.HandleFunc("/otp/request", h.RequestOTP).Methods(http.MethodPost)
	v1.HandleFunc("/otp/verify", h.VerifyOTP).Methods(http.MethodPost)
	v1.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	v1.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	v1.Handle("/me", RequireAuth(authn)(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	return otelhttp.NewHandler(r, "marketplace-auth")
}
