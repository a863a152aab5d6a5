package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	err := NewStatusError(errors.New("too many requests"), http.StatusTooManyRequests)
	assert.True(t, IsRateLimited(err))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", err)))

	assert.False(t, IsRateLimited(NewStatusError(errors.New("oops"), http.StatusBadGateway)))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("unexpected EOF")))

	// Status errors are classified by the schedule, never as transient.
	assert.False(t, IsTransient(NewStatusError(errors.New("503"), http.StatusServiceUnavailable)))
	assert.False(t, IsTransient(errors.New("invalid payload")))
	assert.False(t, IsTransient(nil))
}
