package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
	"gso_supply_tracker/db"
	"gso_supply_tracker/models"
	"gso_supply_tracker/qr"
)

type SupplyController struct{ *Srv }

func NewSupplyController(s *Srv) *SupplyController { return &SupplyController{Srv: s} }

// Categories

func (sc *SupplyController) CreateCategory(c *gin.Context) {
	var in models.SupplyCategory
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := sc.Repo.CreateCategory(c.Request.Context(), &in); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (sc *SupplyController) ListCategories(c *gin.Context) {
	cs, err := sc.Repo.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": cs})
}

// Supplies

func (sc *SupplyController) CreateSupply(c *gin.Context) {
	var in struct {
		Name              string `json:"name" binding:"required"`
		Description       string `json:"description"`
		CategoryID        uint   `json:"categoryId" binding:"required"`
		Quantity          int    `json:"quantity"`
		MinStockLevel     int    `json:"minStockLevel"`
		DefaultBorrowDays int    `json:"defaultBorrowDays"`
		Unit              string `json:"unit"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	s := &models.Supply{
		Name:              in.Name,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		Quantity:          in.Quantity,
		MinStockLevel:     in.MinStockLevel,
		DefaultBorrowDays: in.DefaultBorrowDays,
		Unit:              in.Unit,
	}
	if s.MinStockLevel == 0 {
		s.MinStockLevel = 5
	}
	if s.DefaultBorrowDays == 0 {
		s.DefaultBorrowDays = 3
	}
	if s.Unit == "" {
		s.Unit = "pcs"
	}
	if err := sc.Repo.CreateSupply(c.Request.Context(), s, app.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"supply": s, "qrToken": qr.SupplyToken(s)})
}

func (sc *SupplyController) ListSupplies(c *gin.Context) {
	page, size := pageArgs(c)
	catID, _ := strconv.ParseUint(c.Query("categoryId"), 10, 32)
	rows, total, err := sc.Repo.ListSupplies(c.Request.Context(), db.SupplyQuery{
		Q:          c.Query("q"),
		CategoryID: uint(catID),
		Stock:      c.Query("stock"),
		Page:       page,
		Size:       size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"supplies": rows, "total": total})
}

func (sc *SupplyController) GetSupply(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	s, err := sc.Repo.FindSupplyByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	avail, err := sc.Repo.AvailableQuantity(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"supply":      s,
		"available":   avail,
		"stockStatus": s.StockStatus(),
		"qrToken":     qr.SupplyToken(s),
	})
}

func (sc *SupplyController) UpdateSupply(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Name              *string `json:"name"`
		Description       *string `json:"description"`
		MinStockLevel     *int    `json:"minStockLevel"`
		DefaultBorrowDays *int    `json:"defaultBorrowDays"`
		Unit              *string `json:"unit"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	s, err := sc.Repo.UpdateSupply(c.Request.Context(), id, db.SupplyUpdate{
		Name:              in.Name,
		Description:       in.Description,
		MinStockLevel:     in.MinStockLevel,
		DefaultBorrowDays: in.DefaultBorrowDays,
		Unit:              in.Unit,
	}, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (sc *SupplyController) DeactivateSupply(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := sc.Repo.DeactivateSupply(c.Request.Context(), id, app.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (sc *SupplyController) Restock(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Amount int    `json:"amount" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	s, err := sc.Repo.RestockSupply(c.Request.Context(), id, in.Amount, in.Notes, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (sc *SupplyController) Adjust(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Delta       int    `json:"delta" binding:"required"`
		Reason      string `json:"reason" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	s, err := sc.Repo.AdjustStock(c.Request.Context(), id, in.Delta, in.Reason, in.Description, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Equipment instances

func (sc *SupplyController) CreateInstance(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		InstanceCode string `json:"instanceCode" binding:"required"`
		SerialNumber string `json:"serialNumber"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	inst := &models.EquipmentInstance{
		SupplyID:     id,
		InstanceCode: in.InstanceCode,
		SerialNumber: in.SerialNumber,
	}
	if err := sc.Repo.CreateInstance(c.Request.Context(), inst, app.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"instance": inst, "qrToken": qr.InstanceToken(inst)})
}

func (sc *SupplyController) ListInstances(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	rows, err := sc.Repo.ListInstances(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"instances": rows})
}

func (sc *SupplyController) SetInstanceStatus(c *gin.Context) {
	id, ok := uintParam(c, "instanceId")
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	inst, err := sc.Repo.SetInstanceMaintenance(c.Request.Context(), id, in.Status, in.Notes, app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}
