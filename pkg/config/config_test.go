package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateflow/pkg/config"
)

type workerConfig struct {
	PullInterval string `env:"TEST_WORKER_PULL_INTERVAL" envDefault:"1s"`
	LockTimeout  string `env:"TEST_WORKER_LOCK_TIMEOUT" envDefault:"5m"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET_VALUE,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg workerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "1s", cfg.PullInterval)
		assert.Equal(t, "5m", cfg.LockTimeout)
	})

	t.Run("reads environment over defaults", func(t *testing.T) {
		type envConfig struct {
			Interval string `env:"TEST_ENV_OVERRIDE_INTERVAL" envDefault:"1s"`
		}
		t.Setenv("TEST_ENV_OVERRIDE_INTERVAL", "250ms")

		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "250ms", cfg.Interval)
	})

	t.Run("caches per type", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_CACHED_VALUE" envDefault:"first"`
		}
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		// A changed environment must not affect the cached result.
		t.Setenv("TEST_CACHED_VALUE", "second")
		var again cachedConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, first.Value, again.Value)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer fails", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[workerConfig](nil), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on missing required variable", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredConfig
			config.MustLoad(&cfg)
		})
	})
}
