package querycache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingTTL(t *testing.T) {
	assert.Equal(t, time.Hour, Pending{}.ttl(time.Hour))
	assert.Equal(t, 120*time.Second, Remember(120*time.Second, "user-orders-5").ttl(time.Hour))
	assert.Equal(t, Forever, RememberForever("").ttl(time.Hour))
	assert.True(t, NoCache().Skip)
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable("get", nil))

	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("get", cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, Unavailable("put", err))
}
