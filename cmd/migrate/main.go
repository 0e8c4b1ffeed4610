package main

import (
	"fmt"
	"log"

	"queuedesk/internal/config"
	"queuedesk/internal/models"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.User{},
		&models.Queue{},
		&models.Form{},
		&models.FormField{},
		&models.Ticket{},
		&models.TicketComment{},
		&models.TicketStatus{},
		&models.TicketFieldValue{},
		&models.Trigger{},
		&models.AutomationRun{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_status_created ON tickets(status, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_queue_status ON tickets(queue_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_assignee_status ON tickets(assigned_to_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_requester_created ON tickets(requester_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_ticket_field_values_ticket_key ON ticket_field_values(ticket_id, field_key)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_runs_trigger_created ON automation_runs(trigger_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_runs_ticket ON automation_runs(ticket_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_form_fields_form_position ON form_fields(form_id, position)")

	log.Println("Indexes created successfully!")
}
