package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/nitrite-go/nitrite"
	"github.com/nitrite-go/nitrite/logging"
)

// Load loads configuration from .env file and environment variables
// prefix: Environment variable prefix (e.g. "NITRITE_")
// target: Pointer to the config struct to load into
func Load(prefix string, target interface{}) error {
	v := viper.New()

	// 1. Load from .env file (if exists)
	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		// Ignore error if file doesn't exist, it's optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// If it's another error (e.g. parsing), we might want to log it but carrying on is standard if optional.
			// formatting error might catch later during Unmarshal if critical.
		}
	}

	// 2. Load from environment variables
	// Viper's AutomaticEnv doesn't work well with Unmarshal if keys aren't known (e.g. no config file).
	// We mimic koanf's env.Provider: iterate env vars and populate viper.

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, prefixUpper) {
			// NITRITE_STORE_PATH -> store.path
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			// Remove leading dot if any (e.g. if prefix didn't include underscore but env did)
			propKey = strings.TrimPrefix(propKey, ".")

			v.Set(propKey, value)
		}
	}

	// 3. Unmarshal into struct
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// HostConfig is what a host application loads via Load before turning it
// into a nitrite.Options. It is a plain settings struct, not something
// the core package knows about — the separation SPEC_FULL.md's
// Configuration section describes.
type HostConfig struct {
	FieldSeparator string      `mapstructure:"field_separator"`
	Log            logging.Config `mapstructure:"log"`
}

// LoadOptions reads HostConfig from .env/environment variables under
// prefix and converts it into a nitrite.Options, initializing the global
// logger as a side effect so the returned Options.Logger and every other
// log line in the process share one slog handler.
func LoadOptions(prefix string) (nitrite.Options, error) {
	cfg := HostConfig{Log: logging.Config{Level: "INFO", Format: "json"}}
	if err := Load(prefix, &cfg); err != nil {
		return nitrite.Options{}, err
	}
	logging.Init(cfg.Log)
	return nitrite.Options{
		FieldSeparator: cfg.FieldSeparator,
		Logger:         logging.Get(),
	}, nil
}
