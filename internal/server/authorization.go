package server

import (
	"github.com/gin-gonic/gin"
)

// authorize gates a route on the casbin policy for the signed-in user. It
// must run after the session middleware.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		switch {
		case !ok:
			AbortWithError(c, ErrUnauthorized)
		case s.authzSvc == nil:
			AbortWithError(c, ErrForbidden)
		default:
			if err := s.authzSvc.Authorize(c.Request.Context(), user.ID, string(user.Role), object, action); err != nil {
				AbortWithError(c, err)
				return
			}
			c.Next()
		}
	}
}
