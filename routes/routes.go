package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"gso_supply_tracker/app"
	"gso_supply_tracker/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	uc := controllers.NewUserController(s)
	supplyCtl := controllers.NewSupplyController(s)
	reqCtl := controllers.NewRequestController(s)
	borrowCtl := controllers.NewBorrowController(s)
	extCtl := controllers.NewExtensionController(s)
	anaCtl := controllers.NewAnalyticsController(s)
	ledgerCtl := controllers.NewLedgerController(s)
	scanCtl := controllers.NewScanController(s)
	noteCtl := controllers.NewNotificationController(s)

	authMW := app.AuthRequired(a.AppSessions(), s.Repo)
	staffMW := app.StaffOnly()
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// Auth (public)
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/register", uc.Register)
		auth.POST("/login", uc.Login)
	}
	authd := r.Group("/auth", authMW, seenMW)
	{
		authd.POST("/logout", uc.Logout)
		authd.GET("/whoami", uc.Whoami)
	}

	// ------------------------------
	// Catalog
	// ------------------------------
	catalog := r.Group("/api", authMW, seenMW)
	{
		catalog.GET("/categories", supplyCtl.ListCategories)
		catalog.GET("/departments", uc.ListDepartments)
		catalog.GET("/supplies", supplyCtl.ListSupplies)
		catalog.GET("/supplies/:id", supplyCtl.GetSupply)
		catalog.GET("/supplies/:id/instances", supplyCtl.ListInstances)
	}

	// ------------------------------
	// Requests and borrows (member)
	// ------------------------------
	member := r.Group("/api", authMW, seenMW)
	{
		member.POST("/requests", reqCtl.Create)
		member.POST("/requests/batch", reqCtl.CreateBatch)
		member.GET("/requests", reqCtl.List)
		member.GET("/requests/:id", reqCtl.Get)
		member.POST("/requests/:id/cancel", reqCtl.Cancel)
		member.GET("/batches/:batchId", reqCtl.GetBatch)

		member.GET("/borrows/mine", borrowCtl.ListMine)
		member.POST("/borrows/:id/extension", extCtl.Request)
		member.GET("/extensions", extCtl.List)

		member.GET("/analytics/me", anaCtl.Mine)

		member.GET("/notifications", noteCtl.List)
		member.GET("/notifications/unread", noteCtl.UnreadCount)
		member.POST("/notifications/:id/read", noteCtl.MarkRead)
		member.POST("/notifications/read-all", noteCtl.MarkAllRead)

		member.POST("/scan", scanCtl.Resolve)
	}

	// ------------------------------
	// Processing and stock (staff)
	// ------------------------------
	staff := r.Group("/api", authMW, staffMW, seenMW)
	{
		staff.POST("/requests/:id/approve", reqCtl.Approve)
		staff.POST("/requests/:id/reject", reqCtl.Reject)
		staff.POST("/requests/review", reqCtl.ReviewMany)
		staff.POST("/batches/:batchId/approve", reqCtl.ApproveBatch)
		staff.POST("/batches/:batchId/reject", reqCtl.RejectBatch)

		staff.POST("/requests/:id/issue", borrowCtl.Issue)
		staff.POST("/batches/:batchId/issue", borrowCtl.IssueBatch)
		staff.POST("/batches/:batchId/return", borrowCtl.ReturnBatch)
		staff.GET("/borrows", borrowCtl.List)
		staff.POST("/borrows/:id/return", borrowCtl.Return)
		staff.POST("/borrows/return", borrowCtl.ReturnMany)

		staff.POST("/extensions/:id/approve", extCtl.Approve)
		staff.POST("/extensions/:id/reject", extCtl.Reject)

		staff.POST("/categories", supplyCtl.CreateCategory)
		staff.POST("/supplies", supplyCtl.CreateSupply)
		staff.PUT("/supplies/:id", supplyCtl.UpdateSupply)
		staff.DELETE("/supplies/:id", supplyCtl.DeactivateSupply)
		staff.POST("/supplies/:id/restock", supplyCtl.Restock)
		staff.POST("/supplies/:id/adjust", supplyCtl.Adjust)
		staff.POST("/supplies/:id/instances", supplyCtl.CreateInstance)
		staff.POST("/instances/:instanceId/status", supplyCtl.SetInstanceStatus)

		staff.GET("/analytics", anaCtl.List)
		staff.GET("/analytics/users/:id", anaCtl.ForUser)
		staff.GET("/dashboard", anaCtl.Dashboard)

		staff.GET("/ledger", ledgerCtl.Transactions)
		staff.GET("/adjustments", ledgerCtl.Adjustments)
		staff.GET("/audit", ledgerCtl.AuditLog)
		staff.GET("/scans", scanCtl.History)

		staff.GET("/users", uc.ListUsers)
		staff.POST("/users/:id/approve", uc.ApproveUser)
		staff.POST("/users/:id/reject", uc.RejectUser)
	}

	// ------------------------------
	// Admin
	// ------------------------------
	admin := r.Group("/api", authMW, adminMW)
	{
		admin.POST("/users/:id/role", uc.SetRole)
		admin.POST("/departments", uc.CreateDepartment)
	}
}
