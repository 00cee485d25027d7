package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"riskradar/api"
	"riskradar/config"
	"riskradar/model"
	"riskradar/notify"
	"riskradar/risk"
)

func main() {
	// load the environment variables
	_ = godotenv.Load()

	// parse the command line arguments
	cfg := parseFlags()

	// Initialize logging
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Print welcome message
	printWelcome()

	// Load model artifacts; failure leaves the service running but not ready
	predictor := model.NewPredictor(loadArtifacts(cfg.Model))

	notifier := notify.New(cfg.Notify)
	service := risk.NewService(predictor, notifier)
	service.SetAlertTimeout(time.Duration(cfg.Notify.TimeoutSeconds) * time.Second)

	// Create and start API server
	apiServer := api.NewServer(service, cfg.Server.AllowedOrigins)
	go func() {
		addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
		log.Info("Starting API server on ", addr)
		if err := apiServer.Start(addr); err != nil {
			log.Fatal("Failed to start API server: ", err)
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down API server: ", err)
	}

	// let in-flight alerts finish
	service.Wait()
}

func loadArtifacts(cfg config.ModelConfig) *model.Artifacts {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	artifacts, err := model.LoadArtifacts(ctx, cfg)
	if err != nil {
		log.WithField("dir", cfg.Dir).Error("Model loading failed: ", err)
		color.Red("Model loading failed, /predict will answer 500 until restart")
		return nil
	}

	log.WithField("dir", cfg.Dir).Info("Model, scaler and features loaded")
	color.Green("Model, scaler & features loaded successfully")
	return artifacts
}

func parseFlags() *config.Config {
	// Load default config
	cfg, err := config.LoadFromFile("./config.json")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv()

	// Server flags
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Host address")
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Port number")

	// Model flags
	flag.StringVar(&cfg.Model.Dir, "model-dir", cfg.Model.Dir, "Directory holding the model artifacts")
	flag.StringVar(&cfg.Model.ModelFile, "model-file", cfg.Model.ModelFile, "XGBoost JSON model file name")
	flag.StringVar(&cfg.Model.ScalerFile, "scaler-file", cfg.Model.ScalerFile, "Scaler file name")
	flag.StringVar(&cfg.Model.FeaturesFile, "features-file", cfg.Model.FeaturesFile, "Feature list file name")

	// Notify flags
	notifier := flag.String("notifier", cfg.Notify.Type.String(), "High risk notifier (none, log, webhook)")
	flag.StringVar(&cfg.Notify.WebhookURL, "webhook-url", cfg.Notify.WebhookURL, "Webhook URL for the webhook notifier")

	// Log level flag
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error, fatal)")

	// Parse flags
	flag.Parse()

	cfg.Notify.Type = config.ParseNotifierType(*notifier)

	return cfg
}

func printWelcome() {
	banner := color.New(color.FgCyan, color.Bold)
	banner.Println(" ____  _     _    ____           _            ")
	banner.Println("|  _ \\(_)___| | _|  _ \\ __ _  __| | __ _ _ __ ")
	banner.Println("| |_) | / __| |/ / |_) / _` |/ _` |/ _` | '__|")
	banner.Println("|  _ <| \\__ \\   <|  _ < (_| | (_| | (_| | |   ")
	banner.Println("|_| \\_\\_|___/_|\\_\\_| \\_\\__,_|\\__,_|\\__,_|_|   ")
	fmt.Println()
}
