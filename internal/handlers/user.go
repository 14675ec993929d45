package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jason-s-yu/scoresheet/internal/auth"
)

type guestRequest struct {
	Username string `json:"username"`
}

type guestResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// GuestHandler issues an ephemeral scorekeeper identity. The token is returned in the body and
// set as the auth cookie. An empty body is accepted.
func GuestHandler(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid guest payload", nil)
			return
		}
	}

	ident, token, err := auth.NewGuest(strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create guest", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TokenMaxAge(),
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, guestResponse{
		ID:       ident.ID.String(),
		Username: ident.Username,
		Token:    token,
	})
}
