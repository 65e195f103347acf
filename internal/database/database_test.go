package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mx-space/footprint/internal/config"
)

func TestResolveLogLevel(t *testing.T) {
	dev, err := config.Parse(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, logger.Info, resolveLogLevel(dev))

	prod, err := config.Parse([]byte("env: production\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, logger.Warn, resolveLogLevel(prod))
}
