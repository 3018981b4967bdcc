package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	DefaultEnvFile = ".env"
	// FileVariable points at an alternative dotenv file.
	FileVariable = "ENV_FILE"
)

// InitConfig loads the optional dotenv file once and then fills every config
// struct from the environment. Each config is processed on its own so that
// components keep their unprefixed envconfig tags.
func InitConfig(configs ...any) error {
	// nolint:errcheck // dotenv file is optional
	_ = godotenv.Load(envFile())

	if len(configs) == 0 {
		return errors.New("no config to process")
	}

	for _, config := range configs {
		if err := envconfig.Process("", config); err != nil {
			return errors.Wrapf(err, "failed to envconfig.Process %s", typeName(config))
		}
	}

	return nil
}

func envFile() string {
	if path := os.Getenv(FileVariable); path != "" {
		return path
	}
	return DefaultEnvFile
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
