package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
	"gso_supply_tracker/db"
	"gso_supply_tracker/qr"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

type requestLine struct {
	SupplyID   uint       `json:"supplyId" binding:"required"`
	InstanceID *uint      `json:"instanceId"`
	Quantity   int        `json:"quantity"`
	Purpose    string     `json:"purpose"`
	Priority   string     `json:"priority"`
	NeededBy   *time.Time `json:"neededBy"`
}

func (l requestLine) toInput() db.CreateRequestInput {
	qty := l.Quantity
	if qty == 0 {
		qty = 1
	}
	return db.CreateRequestInput{
		SupplyID:   l.SupplyID,
		InstanceID: l.InstanceID,
		Quantity:   qty,
		Purpose:    l.Purpose,
		Priority:   l.Priority,
		NeededBy:   l.NeededBy,
	}
}

func (rc *RequestController) Create(c *gin.Context) {
	var in requestLine
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	req, err := rc.Repo.CreateRequest(c.Request.Context(), app.CurrentUser(c), in.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"request": req, "qrToken": qr.RequestToken(req)})
}

func (rc *RequestController) CreateBatch(c *gin.Context) {
	var in struct {
		Items []requestLine `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	inputs := make([]db.CreateRequestInput, 0, len(in.Items))
	for _, l := range in.Items {
		inputs = append(inputs, l.toInput())
	}
	reqs, err := rc.Repo.CreateBatch(c.Request.Context(), app.CurrentUser(c), inputs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{
		"requests": reqs,
		"batchId":  reqs[0].BatchGroupID,
		"qrToken":  qr.BatchToken(*reqs[0].BatchGroupID),
	})
}

// List shows the caller's own requests; staff may pass all=1 and filter by
// any requester.
func (rc *RequestController) List(c *gin.Context) {
	u := app.CurrentUser(c)
	page, size := pageArgs(c)
	q := db.RequestQuery{
		RequesterID: u.ID,
		Status:      c.Query("status"),
		Priority:    c.Query("priority"),
		Page:        page,
		Size:        size,
	}
	if u.IsStaff() && c.Query("all") == "1" {
		q.RequesterID = c.Query("requesterId")
	}
	rows, total, err := rc.Repo.ListRequests(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": rows, "total": total})
}

func (rc *RequestController) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	req, err := rc.Repo.FindRequestByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	u := app.CurrentUser(c)
	if req.RequesterID != u.ID && !u.IsStaff() {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, app.H{"request": req, "qrToken": qr.RequestToken(req)})
}

func (rc *RequestController) GetBatch(c *gin.Context) {
	rows, err := rc.Repo.ListBatchRequests(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": rows})
}

type reviewBody struct {
	Notes string `json:"notes"`
}

func (rc *RequestController) Approve(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	req, err := rc.Repo.ApproveRequest(c.Request.Context(), id, app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (rc *RequestController) Reject(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	req, err := rc.Repo.RejectRequest(c.Request.Context(), id, app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (rc *RequestController) Cancel(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	req, err := rc.Repo.CancelRequest(c.Request.Context(), id, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (rc *RequestController) ApproveBatch(c *gin.Context) {
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	res, err := rc.Repo.ApproveBatch(c.Request.Context(), c.Param("batchId"), app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (rc *RequestController) RejectBatch(c *gin.Context) {
	var in reviewBody
	_ = c.ShouldBindJSON(&in)
	res, err := rc.Repo.RejectBatch(c.Request.Context(), c.Param("batchId"), app.CurrentUser(c), in.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReviewMany is the staff multi-select path: approve or reject an id list
// in one call, partial success.
func (rc *RequestController) ReviewMany(c *gin.Context) {
	var in struct {
		IDs     []uint `json:"ids" binding:"required"`
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res := rc.Repo.ReviewMany(c.Request.Context(), in.IDs, app.CurrentUser(c), in.Notes, in.Approve)
	c.JSON(http.StatusOK, res)
}
