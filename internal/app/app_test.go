// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/app"
	"github.com/JakeFAU/nj-housing-tracker/internal/config"
	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/publisher/memory"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.DSN = filepath.Join(t.TempDir(), "housing.db")
	return cfg
}

func TestNewBuildsDefaultServices(t *testing.T) {
	cfg := testConfig(t)

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Store())
	assert.Nil(t, a.Publisher())
	assert.Equal(t, cfg.Store.DSN, a.Config().Store.DSN)

	_, err = a.Store().GetMunicipality(context.Background(), "Newark City")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	r, err := a.Resolver()
	require.NoError(t, err)
	assert.NotNil(t, r)

	p, err := a.Pipeline(true)
	require.NoError(t, err)
	assert.NotNil(t, p)

	loader, err := a.ObligationsLoader(true)
	require.NoError(t, err)
	assert.NotNil(t, loader)
}

func TestNewWiresArchiveAndPublisher(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Provider = "local"
	cfg.Archive.BaseDir = filepath.Join(t.TempDir(), "archive")
	cfg.Publisher.Provider = "memory"

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	_, ok := a.Publisher().(*memory.Publisher)
	assert.True(t, ok)
	_, err = a.Pipeline(false)
	require.NoError(t, err)
}

func TestNewWithMemoryArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Provider = "memory"

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Pipeline(false)
	require.NoError(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "oracle"

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	var cfgErr *housing.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store.driver", cfgErr.Field)
}

func TestNewFailsOnUnwritableArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Provider = "local"
	cfg.Archive.BaseDir = cfg.Store.DSN

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init local archive")
}

func TestResolverRespectsSourcePriority(t *testing.T) {
	cfg := testConfig(t)
	cfg.Resolver.SourcePriority = []string{"search"}

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	r, err := a.Resolver()
	require.NoError(t, err)
	assert.NotNil(t, r)
}
