package main

import (
	"log"

	"genius-be/internal/config"
	"genius-be/internal/model"
	"genius-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Tables
	log.Println("Step 1: Migrating tables...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Indexes GORM tags cannot express
	log.Println("Step 2: Creating partial index...")
	indexSQL := []string{
		// Session list: live rows of one user, newest activity first.
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user_recent ON chat_sessions (user_id, updated_at DESC, created_at DESC) WHERE deleted_at IS NULL;`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: %v\nSQL: %s", err, sql)
		}
	}

	log.Println("Migration completed successfully.")
}
