package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the server configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Search struct {
		// MaxIterations is the default evaluation budget when a request
		// leaves it unset.
		MaxIterations int `env:"SEARCH_MAX_ITERATIONS" envDefault:"100"`
		// Depth is the default optimization depth: basic, standard or deep.
		Depth string `env:"SEARCH_DEPTH" envDefault:"standard"`
		// Parallel is a hint that candidates may be batched to the
		// evaluator. The core algorithm does not exercise it.
		Parallel bool `env:"SEARCH_PARALLEL" envDefault:"false"`
		// Seed fixes the engine's random source; 0 seeds from the clock.
		Seed int64 `env:"SEARCH_SEED" envDefault:"0"`
	}
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development defaults to verbose logging.
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
