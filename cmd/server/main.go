package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthpoint/consent-access-api/internal/config"
	"github.com/healthpoint/consent-access-api/internal/crypto"
	"github.com/healthpoint/consent-access-api/internal/dao"
	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/router"
	"github.com/healthpoint/consent-access-api/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	db, err := database.Initialize(&cfg.Database.Main, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	masterKey, err := cfg.Security.MasterKeyBytes()
	if err != nil {
		logger.WithError(err).Fatal("Invalid master key")
	}
	cipher, err := crypto.NewCipher(masterKey, cfg.Security.KeySalt)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize PII cipher")
	}

	grantDAO := dao.NewGrantDAO(db)
	apptDAO := dao.NewAppointmentDAO(db)
	auditDAO := dao.NewAuditLogDAO(db)
	userDAO := dao.NewUserDAO(db)

	auditService := service.NewAuditService(auditDAO, logger)
	grantService := service.NewGrantService(grantDAO, apptDAO, auditService, db, logger)
	accessService := service.NewAccessService(grantDAO, apptDAO, userDAO, auditService, cipher, db, logger)
	complianceService := service.NewComplianceService(userDAO, auditDAO, auditService, cipher, logger)

	engine := router.SetupRouter(db, grantService, accessService, auditService, complianceService)

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddress(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("address", server.Addr).Info("Starting consent access API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}
