package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/config"
)

type recordingFactory struct {
	got Config
}

func (f *recordingFactory) Create(config Config) (Store, error) {
	f.got = config
	return nil, errors.ConfigError("not implemented")
}

func (f *recordingFactory) GetType() string { return "recording" }

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	factory := &recordingFactory{}
	reg.Register("sqlite", factory)
	reg.Register("memory", factory)

	assert.Equal(t, []string{"memory", "sqlite"}, reg.GetAvailableTypes())
	assert.True(t, reg.IsRegistered("sqlite"))
	assert.False(t, reg.IsRegistered("postgres"))

	_, err := reg.Create("postgres", GenericConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "postgres not registered")

	_, err = reg.Create("sqlite", GenericConfig{"path": "x.db"})
	require.Error(t, err)
	assert.Equal(t, "x.db", factory.got.GetConnectionString())
}

func TestNewStore_UnsupportedType(t *testing.T) {
	_, err := NewStore(&config.Config{DatabaseType: "mysql"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestGenericConfig(t *testing.T) {
	gc := GenericConfig{"type": "postgres", "url": "postgres://localhost/db"}
	assert.NoError(t, gc.Validate())
	assert.Equal(t, "postgres", gc.GetType())
	assert.Equal(t, "postgres://localhost/db", gc.GetConnectionString())
	assert.Equal(t, "", gc.String("path"))
	assert.Equal(t, "generic", GenericConfig{}.GetType())
}
