package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveConcurrency_ExplicitOverrideWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = 7
	assert.Equal(t, 7, cfg.ResolveConcurrency())
}

func TestResolveConcurrency_AutoSizeWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = 0

	got := cfg.ResolveConcurrency()
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 20)
}

func TestValidate_RejectsConcurrencyOutsideRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = 21
	assert.Error(t, cfg.Validate())

	cfg.Engine.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg.Engine.Concurrency = 20
	assert.NoError(t, cfg.Validate())
}
