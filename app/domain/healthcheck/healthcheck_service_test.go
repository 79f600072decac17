package healthcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/mileusna/crontab"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	err error
}

func (f *fakeStore) HealthCheck(ctx context.Context) error {
	return f.err
}

func TestCheckStore(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	hs := NewService(store)

	assert.True(t, hs.CheckStore(ctx))
	store.err = errors.New("down")
	assert.False(t, hs.CheckStore(ctx))
	assert.False(t, hs.CheckStore(ctx))
	store.err = nil
	assert.True(t, hs.CheckStore(ctx))
}

func TestStart(t *testing.T) {
	ctab := crontab.New()
	defer ctab.Shutdown()

	hs := NewService(&fakeStore{})
	assert.NoError(t, hs.Start(context.Background(), ctab))
}
