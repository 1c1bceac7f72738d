package api

import (
	"net/http"

	"github.com/phrazzld/studyloop/internal/api/shared"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/service/auth"
)

// AuthHandler renews access tokens. Tokens are first issued offline by
// studyctl token.
type AuthHandler struct {
	jwtService auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(jwtService auth.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

// RefreshToken handles POST /api/auth/refresh. It must run behind the auth
// middleware and returns a new token for the authenticated subject.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	subject, ok := shared.GetSubject(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), subject)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{Token: token, Subject: subject})
}
