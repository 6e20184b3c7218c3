package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
)

type NotificationController struct{ *Srv }

func NewNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Srv: s}
}

func (nc *NotificationController) List(c *gin.Context) {
	page, size := pageArgs(c)
	rows, total, err := nc.Repo.ListNotifications(c.Request.Context(),
		app.CurrentUser(c).ID, c.Query("unread") == "1", page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"notifications": rows, "total": total})
}

func (nc *NotificationController) UnreadCount(c *gin.Context) {
	n, err := nc.Repo.CountUnreadNotifications(c.Request.Context(), app.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"unread": n})
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := nc.Repo.MarkNotificationRead(c.Request.Context(), app.CurrentUser(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := nc.Repo.MarkAllNotificationsRead(c.Request.Context(), app.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"marked": n})
}
