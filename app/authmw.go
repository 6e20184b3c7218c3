package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/db"
	"gso_supply_tracker/models"
	"gso_supply_tracker/session"
)

const AppSessionCookie = "app_session"

const userKey = "currentUser"

// AuthRequired resolves the session cookie to a live user and puts the full
// record in the context. Only approved accounts get past it; pending and
// rejected users can still hit the public auth routes.
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !u.IsApproved() {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "account pending approval"})
			return
		}
		c.Set("userID", u.ID)
		c.Set(userKey, u)
		c.Next()
	}
}

// StaffOnly gates request processing and stock mutation. Must run after
// AuthRequired.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "staff only"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || u.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// CurrentUser reads the user AuthRequired stashed in the context.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
