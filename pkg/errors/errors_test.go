package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("listing clients: %w", NewServer("list clients", http.StatusInternalServerError))

	assert.True(t, IsServer(err))
	assert.False(t, IsNetwork(err))
	assert.Equal(t, ErrServer, CodeOf(err))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
	assert.False(t, IsServer(nil))
}

func TestNetworkUnwrap(t *testing.T) {
	err := NewNetwork("list genders", context.DeadlineExceeded)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "list genders: request failed: context deadline exceeded", err.Error())
	assert.Equal(t, http.StatusBadGateway, err.StatusCode())
}

func TestServerStatus(t *testing.T) {
	err := NewServer("count genders", http.StatusServiceUnavailable)

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Contains(t, err.Error(), "503 Service Unavailable")
	assert.Equal(t, http.StatusBadRequest, NewBadRequest("bad", nil).StatusCode())
	assert.Equal(t, http.StatusNotFound, NewNotFound("session", nil).StatusCode())
}
