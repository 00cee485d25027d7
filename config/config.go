package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	log "github.com/sirupsen/logrus"
)

/*
Config is the configuration for the application.

Contains the configuration for the HTTP server, the model artifacts and the
risk alert notifier.
*/
type Config struct {
	Server   ServerConfig `json:"server"`
	Model    ModelConfig  `json:"model"`
	Notify   NotifyConfig `json:"notify"`
	LogLevel string       `json:"log_level"`
}

/*
ServerConfig is the configuration for the server.
*/
type ServerConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`
	// allowed CORS origins, "*" for any
	AllowedOrigins []string `json:"allowed_origins"`
}

/*
ModelConfig points at the artifacts produced by the offline training script.
*/
type ModelConfig struct {
	// directory holding the artifacts
	Dir string `json:"dir"`
	// XGBoost JSON model dump
	ModelFile string `json:"model_file"`
	// fitted standard scaler
	ScalerFile string `json:"scaler_file"`
	// ordered feature names
	FeaturesFile string `json:"features_file"`
}

/*
NotifierType is the kind of notifier that receives high risk alerts.
*/
type NotifierType int

const (
	NotifierTypeNone    NotifierType = iota
	NotifierTypeLog     NotifierType = iota
	NotifierTypeWebhook NotifierType = iota
)

/*
NotifyConfig is the configuration for high risk alerts.
*/
type NotifyConfig struct {
	Type NotifierType `json:"type"`
	// target of the webhook notifier
	WebhookURL string `json:"webhook_url"`
	// webhook request timeout [seconds]
	TimeoutSeconds int `json:"timeout_seconds"`
}

/*
Default config
*/
func DefaultConfig() *Config {
	return &Config{
		// server configuration
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "10000",
			AllowedOrigins: []string{"*"},
		},
		// artifact configuration
		Model: ModelConfig{
			Dir:          ".",
			ModelFile:    "crime_model.json",
			ScalerFile:   "scaler.json",
			FeaturesFile: "features.json",
		},
		// alerts are off unless configured
		Notify: NotifyConfig{
			Type:           NotifierTypeNone,
			TimeoutSeconds: 5,
		},
		// logging configuration
		LogLevel: "warn",
	}
}

/*
LoadFromFile loads the configuration from a JSON file.
*/
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := DefaultConfig()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	return config, nil
}

/*
LoadFromEnv loads the configuration from the environment variables.
*/
func LoadFromEnv() (*Config, error) {
	config := DefaultConfig()
	config.ApplyEnv()
	return config, nil
}

/*
ApplyEnv overrides the configuration with the environment variables that are set.
*/
func (c *Config) ApplyEnv() {
	// Server config
	if host := os.Getenv("RISKRADAR_HOST"); host != "" {
		c.Server.Host = host
	}

	// PORT is what most hosting platforms inject
	if portStr := os.Getenv("PORT"); portStr != "" {
		c.Server.Port = portStr
	}
	if portStr := os.Getenv("RISKRADAR_PORT"); portStr != "" {
		c.Server.Port = portStr
	}

	// Model config
	if dir := os.Getenv("RISKRADAR_MODEL_DIR"); dir != "" {
		c.Model.Dir = dir
	}

	if file := os.Getenv("RISKRADAR_MODEL_FILE"); file != "" {
		c.Model.ModelFile = file
	}

	if file := os.Getenv("RISKRADAR_SCALER_FILE"); file != "" {
		c.Model.ScalerFile = file
	}

	if file := os.Getenv("RISKRADAR_FEATURES_FILE"); file != "" {
		c.Model.FeaturesFile = file
	}

	// Notify config
	if notifier := os.Getenv("RISKRADAR_NOTIFIER"); notifier != "" {
		c.Notify.Type = ParseNotifierType(notifier)
	}

	if url := os.Getenv("RISKRADAR_WEBHOOK_URL"); url != "" {
		c.Notify.WebhookURL = url
	}

	if timeoutStr := os.Getenv("RISKRADAR_WEBHOOK_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			c.Notify.TimeoutSeconds = timeout
		}
	}

	if level := os.Getenv("RISKRADAR_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

/*
Validate checks if the configuration is valid
*/
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return eris.Errorf("invalid port: %q", c.Server.Port)
	}
	if c.Model.ModelFile == "" || c.Model.ScalerFile == "" || c.Model.FeaturesFile == "" {
		return eris.New("artifact file names must not be empty")
	}
	if c.Notify.Type == NotifierTypeWebhook && c.Notify.WebhookURL == "" {
		return eris.New("webhook notifier requires a webhook_url")
	}
	if c.Notify.TimeoutSeconds <= 0 {
		return eris.Errorf("invalid notify timeout: %d", c.Notify.TimeoutSeconds)
	}
	return nil
}

/*
String returns the string representation of the notifier type
*/
func (nt NotifierType) String() string {
	switch nt {
	case NotifierTypeNone:
		return "none"
	case NotifierTypeLog:
		return "log"
	case NotifierTypeWebhook:
		return "webhook"
	default:
		return "unknown"
	}
}

/*
ParseNotifierType converts a string to a NotifierType.

Unknown names disable alerts, with a warning so that a typo is not silent.
*/
func ParseNotifierType(s string) NotifierType {
	switch s {
	case "log":
		return NotifierTypeLog
	case "webhook":
		return NotifierTypeWebhook
	case "", "none":
		return NotifierTypeNone
	default:
		log.WithField("notifier", s).Warn("Unknown notifier type, alerts disabled")
		return NotifierTypeNone
	}
}
