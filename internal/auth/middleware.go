package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

type ctxKey struct{}

// WithCaller returns a copy of ctx carrying the authenticated user ID.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// CallerID returns the user ID stored by Middleware.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Authenticate(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userID)))
			return
		case errors.Is(err, ErrUnauthorized):
			deny(w, http.StatusUnauthorized, "Please login to access this resource")
		case errors.Is(err, ErrUnknownUser):
			deny(w, http.StatusUnauthorized, "User not found")
		default:
			log.Printf("[ERROR] authentication failed: %v", err)
			deny(w, http.StatusInternalServerError, "Internal server error")
		}
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
