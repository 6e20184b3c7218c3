package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
	"gso_supply_tracker/db"
)

type LedgerController struct{ *Srv }

func NewLedgerController(s *Srv) *LedgerController { return &LedgerController{Srv: s} }

func (lc *LedgerController) Transactions(c *gin.Context) {
	page, size := pageArgs(c)
	supplyID, _ := strconv.ParseUint(c.Query("supplyId"), 10, 32)
	rows, total, err := lc.Repo.ListTransactions(c.Request.Context(), db.LedgerQuery{
		SupplyID: uint(supplyID),
		Type:     c.Query("type"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"transactions": rows, "total": total})
}

func (lc *LedgerController) Adjustments(c *gin.Context) {
	page, size := pageArgs(c)
	supplyID, _ := strconv.ParseUint(c.Query("supplyId"), 10, 32)
	rows, total, err := lc.Repo.ListAdjustments(c.Request.Context(),
		uint(supplyID), c.Query("penalties") == "1", page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"adjustments": rows, "total": total})
}

func (lc *LedgerController) AuditLog(c *gin.Context) {
	page, size := pageArgs(c)
	rows, total, err := lc.Repo.ListAuditLog(c.Request.Context(),
		c.Query("entityType"), c.Query("action"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"entries": rows, "total": total})
}
