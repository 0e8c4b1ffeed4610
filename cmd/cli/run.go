package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queuedesk/internal/config"
	"queuedesk/internal/handlers"
	"queuedesk/internal/middleware"
	"queuedesk/internal/models"
	"queuedesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queuedesk server",
	Long:  `Run the queuedesk server`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the compact runner: no tracing, no flag overrides, config file only.
// The cmd/server binary is the full-featured entry point.
func run(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Queue{},
		&models.Form{}, &models.FormField{},
		&models.Ticket{}, &models.TicketComment{}, &models.TicketStatus{}, &models.TicketFieldValue{},
		&models.Trigger{}, &models.AutomationRun{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	automationService := services.NewAutomationService(db, appLogger)
	automationService.SetLimits(cfg.Automation.EvalTimeout, cfg.Automation.MaxTriggers)
	ticketService := services.NewTicketService(db, appLogger)
	ticketService.SetAutomationService(automationService)
	formService := services.NewFormService(db, appLogger, ticketService)
	queueService := services.NewQueueService(db)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RateLimitMiddleware(cfg))

	healthHandler := handlers.NewHealthHandler(db, appLogger)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterTicketRoutes(api, handlers.NewTicketHandler(ticketService, appLogger))
	handlers.RegisterFormRoutes(api, handlers.NewFormHandler(formService, appLogger))
	handlers.RegisterQueueRoutes(api, handlers.NewQueueHandler(queueService, appLogger))
	handlers.RegisterTriggerRoutes(api, handlers.NewTriggerHandler(automationService, appLogger))

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}
