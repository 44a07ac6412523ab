package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "sqlite")

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "15", cfg.FlatShippingFee.String())
	assert.True(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "storefront", cfg.RabbitMQ.Exchange)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unknown driver", "DB_DRIVER", "mysql", "unsupported DB_DRIVER"},
		{"bad fee", "FLAT_SHIPPING_FEE", "abc", "invalid FLAT_SHIPPING_FEE"},
		{"negative fee", "FLAT_SHIPPING_FEE", "-1", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("DB_DRIVER", "sqlite")
			v.Set(tt.key, tt.val)
			_, err := load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_PostgresRequiresSecret(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "postgres")
	v.Set("JWT_SECRET", devJWTSecret)
	_, err := load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	v = viper.New()
	v.Set("DB_DRIVER", "postgres")
	v.Set("JWT_SECRET", "s3cret")
	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}
