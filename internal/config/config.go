package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"cafe-system/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. CAFE_DB_HOST
const EnvPrefix = "CAFE"

// Config holds all configuration for the cafe system
type Config struct {
	Database DatabaseConfig `yaml:"database" envconfig:"DB"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envconfig:"RABBITMQ"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Booking  BookingConfig  `yaml:"booking" envconfig:"BOOKING"`
	Tables   []TableConfig  `yaml:"tables" ignored:"true"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds the HTTP host settings
type ServerConfig struct {
	Port             int           `yaml:"port"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" envconfig:"SNAPSHOT_INTERVAL"`
}

// BookingConfig holds reservation defaults
type BookingConfig struct {
	DefaultDurationMinutes int `yaml:"default_duration_minutes" envconfig:"DEFAULT_DURATION_MINUTES"`
}

// TableConfig describes one physical table of the inventory
type TableConfig struct {
	Number   int `yaml:"number"`
	Capacity int `yaml:"capacity"`
}

// Default returns the configuration used when a key is absent
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "cafe", Database: "cafe"},
		RabbitMQ: RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest"},
		Server:   ServerConfig{Port: 3000, SnapshotInterval: 30 * time.Second},
		Booking:  BookingConfig{DefaultDurationMinutes: 60},
	}
}

// Load reads configuration from a YAML file over the defaults, then applies
// CAFE_* environment overrides
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and applies environment overrides
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engines cannot run with
func (c *Config) Validate() error {
	if c.Booking.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("%w: booking.default_duration_minutes must be positive", models.ErrInvalidInput)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", models.ErrInvalidInput, c.Server.Port)
	}
	if c.Server.SnapshotInterval <= 0 {
		return fmt.Errorf("%w: server.snapshot_interval must be positive", models.ErrInvalidInput)
	}

	seen := make(map[int]bool, len(c.Tables))
	for i, t := range c.Tables {
		if t.Number <= 0 {
			return fmt.Errorf("%w: tables[%d].number must be positive", models.ErrInvalidInput, i)
		}
		if t.Capacity <= 0 {
			return fmt.Errorf("%w: tables[%d].capacity must be positive", models.ErrInvalidInput, i)
		}
		if seen[t.Number] {
			return fmt.Errorf("%w: table number %d listed twice", models.ErrInvalidInput, t.Number)
		}
		seen[t.Number] = true
	}
	return nil
}

// Inventory returns the configured tables, or nil when none are listed
func (c *Config) Inventory() []models.Table {
	if len(c.Tables) == 0 {
		return nil
	}
	inventory := make([]models.Table, 0, len(c.Tables))
	for _, t := range c.Tables {
		inventory = append(inventory, models.Table{Number: t.Number, Capacity: t.Capacity, Status: models.TableAvailable})
	}
	return inventory
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
