package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// sessionCookie carries the user's session token.
const sessionCookie = "auth_token"

// AuthConfig selects how AuthMiddleware authenticates callers.
type AuthConfig struct {
	// APIKey authenticates service callers sending "Authorization: Bearer".
	APIKey string
	// Verifier checks the session cookie. Nil rejects every cookie.
	Verifier *Verifier
	// LoginURL, when set, is where rejected callers are redirected.
	LoginURL string
}

// AuthMiddleware authenticates by API key when an Authorization header is
// present, and by session cookie otherwise.
func AuthMiddleware(cfg AuthConfig, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); auth != "" {
				if cfg.APIKey == "" {
					jsonError(w, "api key auth not configured", http.StatusServiceUnavailable)
					return
				}
				token, ok := strings.CutPrefix(auth, "Bearer ")
				if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) != 1 {
					jsonError(w, "invalid api key", http.StatusForbidden)
					return
				}
				id := &Identity{Subject: "service", Service: true}
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
				return
			}

			c, err := r.Cookie(sessionCookie)
			if err != nil || c.Value == "" || cfg.Verifier == nil {
				reject(w, r, cfg.LoginURL, "missing session")
				return
			}
			id, err := cfg.Verifier.Verify(c.Value)
			if err != nil {
				log.Debug("session rejected", "error", err)
				reject(w, r, cfg.LoginURL, "invalid session")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, loginURL, msg string) {
	if loginURL == "" {
		jsonError(w, msg, http.StatusUnauthorized)
		return
	}
	target := loginURL + "?returnUrl=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
