package background

import (
	"context"
	"testing"

	"moosedocs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAndUpdate(t *testing.T) {
	backend := storage.NewMemory()
	ctx := context.Background()

	s, err := NewStore(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, TypeColor, s.Settings().Type)
	assert.Equal(t, "#f9fafb", s.Settings().Color)

	updated := s.Settings()
	updated.Type = TypeGradient
	updated.Gradient.From = "#111111"
	require.NoError(t, s.Update(ctx, updated))

	// Settings survive a reload through the backend.
	reloaded, err := NewStore(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, TypeGradient, reloaded.Settings().Type)
	assert.Equal(t, "#111111", reloaded.Settings().Gradient.From)

	require.NoError(t, reloaded.Reset(ctx))
	assert.Equal(t, DefaultSettings(), reloaded.Settings())
}

func TestUpdateRejectsUnknownType(t *testing.T) {
	s, err := NewStore(context.Background(), storage.NewMemory())
	require.NoError(t, err)

	bad := s.Settings()
	bad.Type = "plaid"
	assert.Error(t, s.Update(context.Background(), bad))
	assert.Equal(t, TypeColor, s.Settings().Type)
}
