package app

import (
	"context"
	"log"

	"gso_supply_tracker/config"
	"gso_supply_tracker/db"
	"gso_supply_tracker/models"
)

// BootstrapFirstAdmin promotes BOOTSTRAP_ADMIN to an approved admin account,
// creating it if needed. Without this a fresh install has nobody who can
// approve accounts.
func BootstrapFirstAdmin(ctx context.Context, repo *db.Repo) {
	username := config.Get("BOOTSTRAP_ADMIN", "")
	if username == "" {
		return
	}
	u, err := repo.FindOrCreateUser(ctx, username)
	if err != nil {
		log.Printf("bootstrap admin failed: %v", err)
		return
	}
	if u.Role == models.RoleAdmin && u.IsApproved() {
		return
	}
	if err := repo.PromoteToAdmin(ctx, u.ID); err != nil {
		log.Printf("bootstrap admin failed: %v", err)
		return
	}
	log.Printf("[BOOTSTRAP] %s is now an approved admin", username)
}
