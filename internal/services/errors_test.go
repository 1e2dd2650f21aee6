package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTemplateInvalid, "workflow", "load", "nodes missing", base)
	require.Error(t, err)

	assert.ErrorIs(t, err, services.ErrTemplateInvalid)
	assert.ErrorIs(t, err, base)
	for _, fragment := range []string{"workflow", "load", "nodes missing", "boom"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, " ", "", "", nil)
	assert.ErrorIs(t, err, services.ErrTransport)
	assert.Contains(t, err.Error(), "service failure")
}

func TestMarkerFindsSentinel(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", services.Wrap(services.ErrResultUnavailable, "comfyui", "history", "", nil))
	assert.Equal(t, services.ErrResultUnavailable, services.Marker(wrapped))
	assert.Nil(t, services.Marker(errors.New("plain")))
	assert.Nil(t, services.Marker(nil))
}
