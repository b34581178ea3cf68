// Package config reads alumnictl settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIURL         string        `env:"ALUMNI_API_URL,required"`
	APIToken       string        `env:"ALUMNI_API_TOKEN"`
	RequestTimeout time.Duration `env:"ALUMNI_REQUEST_TIMEOUT" envDefault:"15s"`
	RefetchTimeout time.Duration `env:"ALUMNI_REFETCH_TIMEOUT" envDefault:"20s"`
	LogLevel       string        `env:"ALUMNI_LOG_LEVEL" envDefault:"info"`
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding variables already set, then parses Config.
// Missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("parse env: ALUMNI_LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Logger returns a text logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}

	return log
}
