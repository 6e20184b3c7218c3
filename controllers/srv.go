package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gso_supply_tracker/app"
	"gso_supply_tracker/db"
	"gso_supply_tracker/session"
)

type Srv struct {
	Repo    *db.Repo
	AppSess *session.AppSessionStore
	Cfg     app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:    db.NewRepo(a.DB),
		AppSess: a.AppSessions(),
		Cfg:     a.Config,
	}
}

// --- helpers ---

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string) error {
	_ = s.Repo.TouchUserLogin(ctx, userID)
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

// fail maps repo error kinds to HTTP statuses in one place.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch db.KindOf(err) {
	case db.KindValidation:
		status = http.StatusBadRequest
	case db.KindNotFound:
		status = http.StatusNotFound
	case db.KindPermissionDenied:
		status = http.StatusForbidden
	case db.KindStateConflict, db.KindInsufficientStock, db.KindOverdueBlock:
		status = http.StatusConflict
	}
	c.JSON(status, app.H{"error": err.Error()})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "bad " + name})
		return 0, false
	}
	return uint(n), true
}

func atoiPositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func pageArgs(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
