package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
)

type meResponse struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	Image             string            `json:"image,omitempty"`
	Role              authdomain.Role   `json:"role"`
	Status            authdomain.Status `json:"status"`
	DefaultTemplateID string            `json:"defaultTemplateId,omitempty"`
	LastLoginAt       *time.Time        `json:"lastLoginAt"`
	CreatedAt         time.Time         `json:"createdAt"`
}

func (s *Server) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp := meResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Image:       user.Image,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.DefaultTemplateID != nil {
		resp.DefaultTemplateID = user.DefaultTemplateID.String()
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	err := s.authsvc.Logout(c.Request.Context(), token)
	s.sessions.Clear(c)
	if err != nil && !errors.Is(err, authdomain.ErrInvalidSession) {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
