package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	"github.com/smallbiznis/timesheet/internal/observability/logger"
	"go.uber.org/zap"
)

type updateAdminUserRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func (s *Server) ListAdminUsers(c *gin.Context) {
	users, err := s.adminSvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) UpdateAdminUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	updated, err := s.adminSvc.UpdateUser(ctx, admindomain.UpdateRequest{
		ActorID: actor.ID,
		UserID:  req.UserID,
		Role:    req.Role,
		Status:  req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(ctx).Info("admin updated user",
		zap.String("target_user_id", updated.ID),
		zap.String("role", string(updated.Role)),
		zap.String("status", string(updated.Status)),
	)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}
