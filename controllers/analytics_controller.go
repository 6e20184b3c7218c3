package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
)

type AnalyticsController struct{ *Srv }

func NewAnalyticsController(s *Srv) *AnalyticsController { return &AnalyticsController{Srv: s} }

func (ac *AnalyticsController) Mine(c *gin.Context) {
	a, err := ac.Repo.GetAnalytics(c.Request.Context(), app.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"analytics":    a,
		"onTimeRate":   a.OnTimeRate(),
		"damageRate":   a.DamageRate(),
		"approvalRate": a.ApprovalRate(),
	})
}

func (ac *AnalyticsController) ForUser(c *gin.Context) {
	a, err := ac.Repo.GetAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"analytics":    a,
		"onTimeRate":   a.OnTimeRate(),
		"damageRate":   a.DamageRate(),
		"approvalRate": a.ApprovalRate(),
	})
}

func (ac *AnalyticsController) List(c *gin.Context) {
	page, size := pageArgs(c)
	rows, total, err := ac.Repo.ListAnalytics(c.Request.Context(), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"analytics": rows, "total": total})
}

func (ac *AnalyticsController) Dashboard(c *gin.Context) {
	st, err := ac.Repo.GetDashboardStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
