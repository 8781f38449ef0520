package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paperly-gateway/auth"
	"paperly-gateway/catalog"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        catalog.User `json:"user"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid login data", err)
		return
	}

	user, err := s.repo.GetUserByEmail(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, catalog.ErrUserNotFound):
		err = auth.ErrInvalidCredentials
	case err != nil:
		s.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	case !auth.CheckPassword(user.HashedPassword, req.Password):
		err = auth.ErrInvalidCredentials
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.log.Warn("invalid credentials", zap.String("email", req.Email))
		s.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
		return
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email, Role: auth.Role(user.Role)})
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	s.log.Info("login successful", zap.String("email", user.Email), zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        *user,
	})
}
