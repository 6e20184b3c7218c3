package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gso_supply_tracker/app"
	"gso_supply_tracker/db"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// Issue hands out one approved request at the counter.
func (bc *BorrowController) Issue(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		InstanceIDs []uint `json:"instanceIds"`
	}
	_ = c.ShouldBindJSON(&in)
	req, items, err := bc.Repo.IssueRequest(c.Request.Context(), id, app.CurrentUser(c), in.InstanceIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"request": req, "borrowedItems": items})
}

func (bc *BorrowController) IssueBatch(c *gin.Context) {
	res, err := bc.Repo.IssueBatch(c.Request.Context(), c.Param("batchId"), app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type returnBody struct {
	Condition     string           `json:"condition" binding:"required"`
	Notes         string           `json:"notes"`
	PenaltyAmount *decimal.Decimal `json:"penaltyAmount"`
}

func (bc *BorrowController) Return(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in returnBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	item, err := bc.Repo.ProcessReturn(c.Request.Context(), db.ReturnInput{
		BorrowedItemID: id,
		Condition:      in.Condition,
		Notes:          in.Notes,
		PenaltyAmount:  in.PenaltyAmount,
	}, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ReturnMany takes a stack of returns in one call. Partial success.
func (bc *BorrowController) ReturnMany(c *gin.Context) {
	var in struct {
		Items []struct {
			BorrowedItemID uint             `json:"borrowedItemId" binding:"required"`
			Condition      string           `json:"condition" binding:"required"`
			Notes          string           `json:"notes"`
			PenaltyAmount  *decimal.Decimal `json:"penaltyAmount"`
		} `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	inputs := make([]db.ReturnInput, 0, len(in.Items))
	for _, it := range in.Items {
		inputs = append(inputs, db.ReturnInput{
			BorrowedItemID: it.BorrowedItemID,
			Condition:      it.Condition,
			Notes:          it.Notes,
			PenaltyAmount:  it.PenaltyAmount,
		})
	}
	res := bc.Repo.ReturnMany(c.Request.Context(), inputs, app.CurrentUser(c))
	c.JSON(http.StatusOK, res)
}

// ReturnBatch closes every open item in a batch with one condition, the
// everything-came-back-together counter shortcut.
func (bc *BorrowController) ReturnBatch(c *gin.Context) {
	var in struct {
		Condition string `json:"condition" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := bc.Repo.ReturnBatch(c.Request.Context(), c.Param("batchId"), in.Condition, in.Notes, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListMine shows the caller's open borrows with due dates.
func (bc *BorrowController) ListMine(c *gin.Context) {
	page, size := pageArgs(c)
	rows, total, err := bc.Repo.ListBorrows(c.Request.Context(), db.BorrowQuery{
		BorrowerID: app.CurrentUser(c).ID,
		OpenOnly:   c.Query("open") != "0",
		Page:       page,
		Size:       size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowedItems": rows, "total": total})
}

// List is the staff view: everything out, overdue, or due soon.
func (bc *BorrowController) List(c *gin.Context) {
	page, size := pageArgs(c)
	q := db.BorrowQuery{
		BorrowerID:  c.Query("borrowerId"),
		OpenOnly:    c.Query("open") == "1",
		OverdueOnly: c.Query("overdue") == "1",
		Page:        page,
		Size:        size,
	}
	if v, ok := c.GetQuery("dueWithinDays"); ok && v != "" {
		if n, err := atoiPositive(v); err == nil {
			q.DueWithinDays = n
		}
	}
	rows, total, err := bc.Repo.ListBorrows(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowedItems": rows, "total": total})
}
