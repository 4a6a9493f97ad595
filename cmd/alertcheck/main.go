// Command alertcheck sends one test security alert through SendGrid using
// the same settings as the server.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sitegate/config"
	"sitegate/logger"
	"sitegate/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, continuing")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logr, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logr.Sync()

	alerter, err := utils.NewSendGridAlerter(cfg.SendGridAPIKey, cfg.AlertFrom, cfg.AlertEmail, logr)
	if err != nil {
		log.Fatalf("Alerting is not configured: %v", err)
	}

	ip := "203.0.113.1"
	if len(os.Args) > 1 {
		ip = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := alerter.ThresholdReached(ctx, ip, 10); err != nil {
		log.Fatalf("Failed to send test alert: %v", err)
	}
	log.Println("test alert sent to", cfg.AlertEmail)
}
