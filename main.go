package main

import (
	"context"
	"log"
	"os"
	"time"

	"gso_supply_tracker/app"
	"gso_supply_tracker/config"
	"gso_supply_tracker/controllers"
	"gso_supply_tracker/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	s := controllers.GetSrv(application)
	app.BootstrapFirstAdmin(context.Background(), s.Repo)

	// Due-soon and overdue reminder sweep.
	go func() {
		ticker := time.NewTicker(application.Config.ReminderPeriod)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := s.Repo.NotifyDueSoonAndOverdue(ctx, application.Config.DueSoonDays); err != nil {
				log.Printf("reminder sweep: %v", err)
			} else if n > 0 {
				log.Printf("reminder sweep: %d notification(s) sent", n)
			}
			cancel()
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Printf("listening on :%s", port)
	_ = r.Run(":" + port)
}
