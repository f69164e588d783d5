package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/provider/providertest"
)

func TestRegistry_BuildRegistered(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	r := provider.NewRegistry()
	r.Register("fake", func(ctx context.Context) (provider.Provider, error) {
		return fake, nil
	})

	assert.True(t, r.Has("fake"))
	assert.False(t, r.Has("rest"))

	built, err := r.Build(context.Background(), "fake")
	require.NoError(t, err)
	assert.Same(t, provider.Provider(fake), built)
}

func TestRegistry_UnknownName(t *testing.T) {
	t.Parallel()

	r := provider.NewRegistry()
	r.Register("local", func(ctx context.Context) (provider.Provider, error) { return nil, nil })
	r.Register("rest", func(ctx context.Context) (provider.Provider, error) { return nil, nil })

	_, err := r.Build(context.Background(), "cloud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "cloud"`)
	assert.Contains(t, err.Error(), "local")
	assert.Contains(t, err.Error(), "rest")
}

func TestRegistry_FactoryErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("connect failed")
	r := provider.NewRegistry()
	r.Register("local", func(ctx context.Context) (provider.Provider, error) {
		return nil, boom
	})

	_, err := r.Build(context.Background(), "local")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_NamesSorted(t *testing.T) {
	t.Parallel()

	r := provider.NewRegistry()
	r.Register("rest", func(ctx context.Context) (provider.Provider, error) { return nil, nil })
	r.Register("local", func(ctx context.Context) (provider.Provider, error) { return nil, nil })

	assert.Equal(t, []string{"local", "rest"}, r.Names())
}
