package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	ControlFile   string        `yaml:"control_file" env:"CAMD_CONTROL_FILE"`
	FIFOInterval  time.Duration `yaml:"fifo_interval" env:"CAMD_FIFO_INTERVAL"`
	LoopInterval  time.Duration `yaml:"loop_interval" env:"CAMD_LOOP_INTERVAL"`
	MaxCommandLen int           `yaml:"max_command_len" env:"CAMD_MAX_COMMAND_LEN"`
	MaxPending    int           `yaml:"max_pending" env:"CAMD_MAX_PENDING"`
	MacrosPath    string        `yaml:"macros_path" env:"CAMD_MACROS_PATH"`

	Cameras []CameraEntry `yaml:"cameras"`

	Postgres struct {
		DSN       string        `yaml:"dsn" env:"DATABASE_DSN"`
		Retention time.Duration `yaml:"retention" env:"DATABASE_RETENTION"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		CommandTopic string   `yaml:"command_topic" env:"COMMAND_TOPIC"`
		StatusTopic  string   `yaml:"status_topic" env:"STATUS_TOPIC"`
	} `yaml:"kafka"`

	Detection struct {
		Endpoint string `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
	} `yaml:"detection"`

	API struct {
		Addr string `yaml:"addr" env:"API_ADDR"`
	} `yaml:"api"`
}

// CameraEntry binds a camera slot to a driver and its legacy settings file.
type CameraEntry struct {
	Slot       int    `yaml:"slot"`
	Driver     string `yaml:"driver"`
	ConfigFile string `yaml:"config_file"`
}

const (
	DefaultFIFOInterval  = time.Second
	DefaultLoopInterval  = 10 * time.Millisecond
	DefaultMaxCommandLen = 256
	DefaultMaxPending    = 10
	DefaultMacrosPath    = "/var/www/html/macros"
)

func defaults() *Config {
	return &Config{
		FIFOInterval:  DefaultFIFOInterval,
		LoopInterval:  DefaultLoopInterval,
		MaxCommandLen: DefaultMaxCommandLen,
		MaxPending:    DefaultMaxPending,
		MacrosPath:    DefaultMacrosPath,
		Cameras:       []CameraEntry{{Slot: 0, Driver: "simulated"}},
	}
}

// LoadConfig reads the YAML file at path, if any, and applies environment
// overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("Config: %s not found, using defaults", path)
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// Переменные окружения имеют приоритет
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.MaxCommandLen <= 0 {
		cfg.MaxCommandLen = DefaultMaxCommandLen
	}
	if cfg.FIFOInterval <= 0 {
		cfg.FIFOInterval = DefaultFIFOInterval
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = DefaultLoopInterval
	}
	if len(cfg.Cameras) == 0 {
		return nil, errors.New("no cameras configured")
	}

	return cfg, nil
}
