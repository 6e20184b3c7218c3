package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
)

type ScanController struct{ *Srv }

func NewScanController(s *Srv) *ScanController { return &ScanController{Srv: s} }

// Resolve decodes a scanned token and returns what it points at.
func (sc *ScanController) Resolve(c *gin.Context) {
	var in struct {
		Token string `json:"token" binding:"required"`
		Type  string `json:"type"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := sc.Repo.ResolveScan(c.Request.Context(), in.Token, in.Type, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (sc *ScanController) History(c *gin.Context) {
	page, size := pageArgs(c)
	rows, total, err := sc.Repo.ListScans(c.Request.Context(),
		c.Query("type"), c.Query("failed") == "1", page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"scans": rows, "total": total})
}
