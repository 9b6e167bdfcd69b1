package cli

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/config"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := LoadAndValidateConfig((*config.Config).Validate)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)

	_, err = LoadAndValidateConfig(func(*config.Config) error { return errors.New("nope") })
	assert.EqualError(t, err, "nope")
}

func TestSetupLoggerHonoursLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := SetupLogger("test")
	assert.Equal(t, "test", logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestDescribeOmitsSecrets(t *testing.T) {
	cfg := &config.Config{GoogleCredentialsJSON: `{"private_key":"x"}`, AMQPURL: "amqp://u:p@h/"}
	for _, v := range Describe(cfg) {
		s, _ := v.(string)
		assert.NotContains(t, s, "private_key")
		assert.NotContains(t, s, "u:p")
	}
}
