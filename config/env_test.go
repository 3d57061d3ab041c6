package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/faultline/config"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, "8080", config.AppPort())
	assert.Equal(t, 0.2, config.StoreFaults().Rate)
	assert.Equal(t, 0.1, config.PaymentFaults().Rate)
	assert.Equal(t, 15*time.Minute, config.GetDuration("LOGIN_WINDOW", time.Hour))
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("STORE_DROP_RATE", "0.75")
	t.Setenv("STORE_DELAY_MAX_MS", "9")

	f := config.StoreFaults()
	assert.Equal(t, 0.75, f.Rate)
	assert.Equal(t, 9*time.Millisecond, f.MaxDelay)
}

func TestTypedGettersFallBack(t *testing.T) {
	t.Setenv("EXPORT_WORKERS", "many")
	assert.Equal(t, 3, config.GetInt("EXPORT_WORKERS", 3))
	assert.Equal(t, 1.5, config.GetFloat("UNSET_FLOAT_KEY", 1.5))
	assert.True(t, config.GetBool("UNSET_BOOL_KEY", true))
	assert.Equal(t, int64(7), config.GetInt64("UNSET_INT_KEY", 7))
}
