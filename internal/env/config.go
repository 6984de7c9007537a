package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Server to send commands to
	Host string `env:"RESPKIT_HOST,default=127.0.0.1"`
	Port int    `env:"RESPKIT_PORT,default=6379"`

	// Mode is the executor used: blocking or cooperative
	Mode        string        `env:"RESPKIT_MODE,default=blocking"`
	DialTimeout time.Duration `env:"RESPKIT_DIAL_TIMEOUT,default=5s"`

	// ExecTimeout bounds a whole exchange started from the CLI or the
	// gateway. Zero waits for as long as the server takes.
	ExecTimeout time.Duration `env:"RESPKIT_EXEC_TIMEOUT,default=0s"`

	Trace    bool   `env:"RESPKIT_TRACE"`
	LogLevel string `env:"RESPKIT_LOG_LEVEL,default=info"`

	HTTPHost  string `env:"RESPKIT_HTTP_HOST,default=0.0.0.0"`
	HTTPPort  string `env:"RESPKIT_HTTP_PORT,default=7362"`
	DebugHTTP bool   `env:"RESPKIT_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
