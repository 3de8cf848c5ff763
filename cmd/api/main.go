package main

import (
	"flag"
	"log"

	"github.com/budgetd-io/budgetd/internal/api"
	"github.com/budgetd-io/budgetd/internal/auth"
	"github.com/budgetd-io/budgetd/internal/config"
	"github.com/budgetd-io/budgetd/internal/database"
	"github.com/budgetd-io/budgetd/internal/email"
	"github.com/budgetd-io/budgetd/internal/store"
	"github.com/joho/godotenv"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	st := store.New(db, cfg.DatabaseType)
	tokens := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var sender email.Sender
	if cfg.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName, cfg.AppURL)
	} else {
		log.Println("smtpHost not specified, emails will be written to the log")
		sender = email.LogSender{}
	}

	authSvc := auth.NewService(st, tokens, sender, cfg.RequireVerification)
	return api.NewApi(cfg, st, authSvc), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	log.Printf("Starting budgetd API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if err := api.Serve(); err != nil {
		log.Fatal(err)
	}
}
