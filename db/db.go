package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gso_supply_tracker/models"
)

// forUpdate adds a row lock on dialects that support it. SQLite serializes
// writers with a database-level lock and rejects FOR UPDATE syntax.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(conn); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return conn
}

func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Department{},
		&models.User{},
		&models.SupplyCategory{},
		&models.Supply{},
		&models.EquipmentInstance{},
		&models.SupplyRequest{},
		&models.RequestCounter{},
		&models.BorrowedItem{},
		&models.ExtensionRequest{},
		&models.BorrowerAnalytics{},
		&models.InventoryTransaction{},
		&models.StockAdjustment{},
		&models.AuditLog{},
		&models.ScanLog{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// At most one unreturned borrow per instance.
	if err := conn.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_instance
	  ON %s (instance_id)
	  WHERE returned_at IS NULL;
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	// At most one pending extension per borrowed item.
	if err := conn.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_pending_per_item
	  ON %s (borrowed_item_id)
	  WHERE status = 'pending';
	`, models.ExtensionTable, models.ExtensionTable)).Error; err != nil {
		return err
	}

	// Open-borrow lookups during return scans.
	if err := conn.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_deadline
	  ON %s (return_deadline)
	  WHERE returned_at IS NULL;
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	return nil
}
