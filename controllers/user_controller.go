package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
	"gso_supply_tracker/models"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// Register creates a pending account. Staff must approve it before the
// user can do anything.
func (uc *UserController) Register(c *gin.Context) {
	var in struct {
		Username     string `json:"username" binding:"required"`
		DisplayName  string `json:"displayName"`
		DepartmentID *uint  `json:"departmentId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := uc.Repo.RegisterUser(c.Request.Context(), in.Username, in.DisplayName, in.DepartmentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// Login issues a session for an approved account.
func (uc *UserController) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := uc.Repo.FindUserByUsername(c.Request.Context(), in.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unknown account"})
		return
	}
	if !u.IsApproved() {
		c.JSON(http.StatusForbidden, app.H{"error": "account " + u.ApprovalStatus})
		return
	}
	if err := uc.issueSession(c.Request.Context(), c.Writer, u.ID); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (uc *UserController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = uc.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	uc.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UserController) Whoami(c *gin.Context) {
	c.JSON(http.StatusOK, app.CurrentUser(c))
}

func (uc *UserController) ListUsers(c *gin.Context) {
	page, size := pageArgs(c)
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), c.Query("status"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (uc *UserController) ApproveUser(c *gin.Context) {
	u, err := uc.Repo.ApproveUser(c.Request.Context(), c.Param("id"), app.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (uc *UserController) RejectUser(c *gin.Context) {
	userID := c.Param("id")
	if err := uc.Repo.RejectUser(c.Request.Context(), userID, app.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	// A rejected account must not keep a live session.
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), userID)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UserController) SetRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := uc.Repo.SetUserRole(c.Request.Context(), c.Param("id"), in.Role, app.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UserController) ListDepartments(c *gin.Context) {
	ds, err := uc.Repo.ListDepartments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"departments": ds})
}

func (uc *UserController) CreateDepartment(c *gin.Context) {
	var d models.Department
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := uc.Repo.CreateDepartment(c.Request.Context(), &d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}
