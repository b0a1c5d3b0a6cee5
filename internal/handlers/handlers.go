// Package handlers provides HTTP handlers for the PDF signing API.
//
// This package contains the endpoints for uploading, signing, previewing,
// deleting, emailing and listing PDFs, and the account endpoints backing the
// identity provider.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(signer, files, accounts, authn, mailer)
//	r := chi.NewRouter()
//	r.Post("/api/v1/pdf/upload", h.UploadPDF)
//
// All handlers are designed to be used with the chi router. Failures are
// reported as {"success": false, "message": "..."}.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-signpdf/internal/auth"
	"go-signpdf/internal/mail"
	"go-signpdf/internal/signing"
	"go-signpdf/internal/storage"
	"go-signpdf/internal/users"
)

type APIHandler struct {
	Signer   *signing.Service
	Files    *storage.FileStore
	Accounts *users.Accounts
	Auth     *auth.Authenticator
	Mailer   mail.Sender

	PublicBaseURL  string
	MaxUploadBytes int64
	CookieExpire   time.Duration
	ResetExpire    time.Duration
}

func NewAPIHandler(signer *signing.Service, files *storage.FileStore, accounts *users.Accounts, authn *auth.Authenticator, mailer mail.Sender) *APIHandler {
	return &APIHandler{
		Signer:         signer,
		Files:          files,
		Accounts:       accounts,
		Auth:           authn,
		Mailer:         mailer,
		MaxUploadBytes: 5 * 1024 * 1024,
		CookieExpire:   5 * 24 * time.Hour,
		ResetExpire:    15 * time.Minute,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// writeSigningError reports an error returned by the signing service.
func writeSigningError(w http.ResponseWriter, r *http.Request, err error) {
	status := signing.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, signing.Message(err))
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *users.InputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Message)
	case errors.Is(err, users.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email is already registered")
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, users.ErrInvalidResetToken):
		writeError(w, http.StatusBadRequest, "Token is invalid or expired")
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// number is a JSON value that may be sent either as a number or as a numeric
// string.
type number struct {
	present bool
	invalid bool
	value   float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	n.present = true
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			n.invalid = true
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		n.invalid = true
		return nil
	}
	n.value = f
	return nil
}

func (n number) float() *float64 {
	if !n.present {
		return nil
	}
	v := n.value
	return &v
}

// int returns nil when n is absent and ok=false when n is not an integer.
func (n number) int() (v *int, ok bool) {
	if n.present && !n.invalid && n.value != math.Trunc(n.value) {
		return nil, false
	}
	return n.truncated()
}

// truncated is like int but drops the fractional part instead of failing.
func (n number) truncated() (v *int, ok bool) {
	if !n.present {
		return nil, true
	}
	f := math.Trunc(n.value)
	if n.invalid || math.Abs(f) > math.MaxInt32 {
		return nil, false
	}
	i := int(f)
	return &i, true
}
