package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, int64(50000), cfg.ReservationFeePerRoom)
	assert.Equal(t, 30, cfg.MaxStayNights)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.TxBaseBackoff)
	assert.Equal(t, time.Duration(0), cfg.HoldSweepInterval)
	assert.Equal(t, GatewaySandbox, cfg.PaymentGateway)
	assert.Equal(t, "booking.events", cfg.NotifyQueue)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/resort")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HOLD_TTL", "30m")
	t.Setenv("RESERVATION_FEE_PER_ROOM", "75000")
	t.Setenv("TX_MAX_ATTEMPTS", "5")
	t.Setenv("MAX_STAY_NIGHTS", "14")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction)
	assert.Equal(t, 30*time.Minute, cfg.HoldTTL)
	assert.Equal(t, int64(75000), cfg.ReservationFeePerRoom)
	assert.Equal(t, 5, cfg.TxMaxAttempts)
	assert.Equal(t, 14, cfg.MaxStayNights)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": ""}},
		{"missing dsn", map[string]string{"STORE_DRIVER": "postgres", "DB_DSN": "", "JWT_SECRET": "s"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite", "JWT_SECRET": "s"}},
		{"bad hold ttl", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "HOLD_TTL": "soon"}},
		{"negative fee", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "RESERVATION_FEE_PER_ROOM": "-1"}},
		{"zero max stay", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "MAX_STAY_NIGHTS": "0"}},
		{"zero attempts", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "TX_MAX_ATTEMPTS": "0"}},
		{"paymongo without key", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "PAYMENT_GATEWAY": "paymongo", "PAYMENT_SECRET_KEY": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
