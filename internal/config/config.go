package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds storage configuration. The default driver is the
// embedded sqlite database; mysql is available for external deployments.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// WebhookConfig holds the platform webhook and Graph API configuration
type WebhookConfig struct {
	VerifyToken     string `mapstructure:"verify_token"`
	PageAccessToken string `mapstructure:"page_access_token"`
	PageID          string `mapstructure:"page_id"`
	GraphBaseURL    string `mapstructure:"graph_base_url"`
}

// OpenAIConfig holds the AI completion API configuration. An empty API key
// disables enrichment rather than failing the pipelines.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// MailboxConfig holds mailbox fetch and send configuration
type MailboxConfig struct {
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	From         string `mapstructure:"from"`
	UseGmailAPI  bool   `mapstructure:"use_gmail_api"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// SchedulerConfig holds poll loop configuration
type SchedulerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "events.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("webhook.graph_base_url", "https://graph.facebook.com")

	viper.SetDefault("openai.model", "gpt-3.5-turbo")

	viper.SetDefault("mailbox.imap_host", "imap.gmail.com")
	viper.SetDefault("mailbox.imap_port", 993)
	viper.SetDefault("mailbox.smtp_host", "smtp.gmail.com")
	viper.SetDefault("mailbox.smtp_port", 587)
	viper.SetDefault("mailbox.use_gmail_api", false)

	viper.SetDefault("scheduler.interval_seconds", 60)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Webhook
	viper.BindEnv("webhook.verify_token", "WEBHOOK_VERIFY_TOKEN")
	viper.BindEnv("webhook.page_access_token", "PAGE_ACCESS_TOKEN")
	viper.BindEnv("webhook.page_id", "PAGE_ID")
	viper.BindEnv("webhook.graph_base_url", "GRAPH_BASE_URL")

	// OpenAI
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.model", "OPENAI_MODEL")

	// Mailbox
	viper.BindEnv("mailbox.imap_host", "MAIL_IMAP_HOST")
	viper.BindEnv("mailbox.imap_port", "MAIL_IMAP_PORT")
	viper.BindEnv("mailbox.imap_user", "MAIL_IMAP_USER")
	viper.BindEnv("mailbox.imap_password", "MAIL_IMAP_PASSWORD")
	viper.BindEnv("mailbox.smtp_host", "MAIL_SMTP_HOST")
	viper.BindEnv("mailbox.smtp_port", "MAIL_SMTP_PORT")
	viper.BindEnv("mailbox.from", "MAIL_FROM")
	viper.BindEnv("mailbox.use_gmail_api", "MAIL_USE_GMAIL_API")
	viper.BindEnv("mailbox.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("mailbox.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("mailbox.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("mailbox.user_email", "GMAIL_USER_EMAIL")

	// Scheduler
	viper.BindEnv("scheduler.interval_seconds", "SCHEDULER_INTERVAL_SECONDS")
}

// GetDSN returns the mysql connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Enabled reports whether the mailbox path is configured at all.
// Without credentials the poll loop is not started.
func (c *MailboxConfig) Enabled() bool {
	if c.UseGmailAPI {
		return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	}
	return c.IMAPUser != "" && c.IMAPPassword != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Webhook.VerifyToken == "" {
		return fmt.Errorf("webhook verify token is required")
	}

	if c.Mailbox.Enabled() {
		if c.Scheduler.IntervalSeconds <= 0 {
			return fmt.Errorf("scheduler interval must be greater than 0")
		}
		if !c.Mailbox.UseGmailAPI && c.Mailbox.From == "" {
			c.Mailbox.From = c.Mailbox.IMAPUser
		}
	}

	return nil
}
