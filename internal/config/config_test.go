package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_DRIVER", "header")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("EVENTS_DRIVER", "")
	t.Setenv("SUMMARY_CACHE_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "none", cfg.EventsDriver)
	assert.Equal(t, time.Hour, cfg.SummaryCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "postgres needs a url",
			cfg:     Config{StoreDriver: StoreDriverPostgres, AuthDriver: AuthDriverHeader},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown store",
			cfg:     Config{StoreDriver: "sqlite", AuthDriver: AuthDriverHeader},
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "header auth in production",
			cfg:     Config{StoreDriver: StoreDriverMemory, AuthDriver: AuthDriverHeader, Environment: "production"},
			wantErr: "production",
		},
		{
			name:    "casdoor needs an endpoint",
			cfg:     Config{StoreDriver: StoreDriverMemory, AuthDriver: AuthDriverCasdoor},
			wantErr: "CASDOOR_ENDPOINT",
		},
		{
			name:    "kafka needs brokers",
			cfg:     Config{StoreDriver: StoreDriverMemory, AuthDriver: AuthDriverHeader, EventsDriver: "kafka"},
			wantErr: "KAFKA_BROKERS",
		},
		{
			name: "valid",
			cfg: Config{
				StoreDriver:  StoreDriverPostgres,
				Database:     DatabaseConfig{URL: "postgres://localhost/quiz"},
				AuthDriver:   AuthDriverCasdoor,
				Casdoor:      CasdoorConfig{Endpoint: "http://casdoor"},
				EventsDriver: "kafka",
				KafkaBrokers: []string{"localhost:9092"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
