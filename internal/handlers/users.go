package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-signpdf/internal/auth"
	mailer "go-signpdf/internal/mail"
	"go-signpdf/internal/users"
)

// sendToken issues a session token for u and returns it in the body and in
// the token cookie.
func (h *APIHandler) sendToken(w http.ResponseWriter, r *http.Request, status int, u *users.User) {
	token, _, err := h.Auth.Issue(u.ID)
	if err != nil {
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.CookieExpire),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, map[string]any{"success": true, "user": u, "token": token})
}

// Register godoc
// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body  object  true  "{ name, email, password }"
// @Success      201  {object}  map[string]interface{}  "{ success: true, user: object, token: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/register [post]
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	u, err := h.Accounts.Register(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	h.sendToken(w, r, http.StatusCreated, u)
}

// Login godoc
// @Summary      Log in
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body  object  true  "{ email, password }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, user: object, token: string }"
// @Failure      401  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/login [post]
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	u, err := h.Accounts.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

// Logout godoc
// @Summary      Log out
// @Description  Clears the token cookie and revokes the presented token
// @Tags         users
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "{ success: true, message: string }"
// @Router       /api/v1/logout [get]
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.Auth.Revoke(r.Context(), token); err != nil {
			log.Printf("[WARN] failed to revoke token: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged Out"})
}

// ForgotPassword godoc
// @Summary      Request a password reset
// @Description  Emails a password reset link valid for a limited time
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body  object  true  "{ email }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, message: string }"
// @Failure      404  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/password/forgot [post]
func (h *APIHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	token, u, err := h.Accounts.StartReset(r.Context(), body.Email)
	if err != nil {
		writeUserError(w, r, err)
		return
	}

	resetURL := h.PublicBaseURL + "/password/reset/" + token
	msg, err := mailer.PasswordReset(u.Email, resetURL, h.ResetExpire)
	if err == nil {
		err = h.Mailer.Send(r.Context(), msg)
	}
	if err != nil {
		if cerr := h.Accounts.CancelReset(r.Context(), token); cerr != nil {
			log.Printf("[WARN] failed to drop reset token: %v", cerr)
		}
		log.Printf("[ERROR] failed to send reset mail to %s: %v", u.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email sent to " + u.Email})
}

// ResetPassword godoc
// @Summary      Reset a password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        token    path  string  true  "Reset token"
// @Param        request  body  object  true  "{ password, confirmPassword }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, user: object, token: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/password/reset/{token} [put]
func (h *APIHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	u, err := h.Accounts.CompleteReset(r.Context(), chi.URLParam(r, "token"), body.Password, body.ConfirmPassword)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

// Me godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "{ success: true, user: object }"
// @Failure      401  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/me [get]
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Accounts.Get(r.Context(), auth.CallerID(r.Context()))
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// UpdatePassword godoc
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  object  true  "{ oldPassword, newPassword, confirmPassword }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, user: object, token: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/password/update [put]
func (h *APIHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	u, err := h.Accounts.UpdatePassword(r.Context(), auth.CallerID(r.Context()),
		body.OldPassword, body.NewPassword, body.ConfirmPassword)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

// UpdateProfile godoc
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  object  true  "{ name, email }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, user: object }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/me/update [put]
func (h *APIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	u, err := h.Accounts.UpdateProfile(r.Context(), auth.CallerID(r.Context()), body.Name, body.Email)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}
