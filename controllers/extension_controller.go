package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
)

type ExtensionController struct{ *Srv }

func NewExtensionController(s *Srv) *ExtensionController { return &ExtensionController{Srv: s} }

func (ec *ExtensionController) Request(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Days   int    `json:"days" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ext, err := ec.Repo.RequestExtension(c.Request.Context(), id, in.Days, in.Reason, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ext)
}

func (ec *ExtensionController) Approve(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	ext, err := ec.Repo.ApproveExtension(c.Request.Context(), id, app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

func (ec *ExtensionController) Reject(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	ext, err := ec.Repo.RejectExtension(c.Request.Context(), id, app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

// List shows the caller's own extensions, or all for staff with all=1.
func (ec *ExtensionController) List(c *gin.Context) {
	u := app.CurrentUser(c)
	page, size := pageArgs(c)
	requesterID := u.ID
	if u.IsStaff() && c.Query("all") == "1" {
		requesterID = c.Query("requesterId")
	}
	rows, total, err := ec.Repo.ListExtensions(c.Request.Context(), c.Query("status"), requesterID, page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"extensions": rows, "total": total})
}
