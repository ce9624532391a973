package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"media-portfolio/pkg/auth"
	"media-portfolio/pkg/models"
	"media-portfolio/pkg/response"
	"media-portfolio/pkg/services"
)

// sessionCookie carries the admin session token for page requests
const sessionCookie = "admin_session"

// ListHandler returns the items of collection c with their access URLs
func (h *Handler) ListHandler(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.ListWithURLs(r.Context(), c)
		if err != nil {
			h.writeError(w, err)
			return
		}
		response.OK(w, items)
	}
}

// URLHandler issues a fresh access URL for a media item or thumbnail
func (h *Handler) URLHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "key is required")
		return
	}
	if _, ok := services.CollectionForKey(key); !ok && !strings.HasPrefix(key, services.ThumbnailPrefix) {
		response.BadRequest(w, "key is not a media item")
		return
	}

	url, err := h.svc.GetFileURL(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"key": key, "url": url})
}

// LoginHandler exchanges the admin passcode for a session token. The token is
// returned in the body and set as a cookie.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	session, token, err := h.auth.SignIn(req.Passcode, h.now())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPasscode) {
			h.logger.Warnw("Rejected admin sign-in", "remote", r.RemoteAddr)
			response.Unauthorized(w, "Invalid verification code")
			return
		}
		h.logger.Errorw("Sign-in failed", "error", err)
		response.InternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Infow("Admin signed in", "expiresAt", session.ExpiresAt)
	response.OK(w, map[string]interface{}{
		"token":     token,
		"expiresAt": session.ExpiresAt,
		"session":   session,
	})
}

// LogoutHandler clears the session cookie. Tokens stay valid until they expire.
func (h *Handler) LogoutHandler(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	response.OK(w, map[string]bool{"signedOut": true})
}
