package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ildang/internal/core"
	"ildang/internal/storage"
	"ildang/internal/storage/storagetest"
)

func TestMemoryBackend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return New()
	})
}

func TestClosedStoreRejectsTransactions(t *testing.T) {
	s := New()
	assert.NoError(t, s.Close())
	err := s.View(context.Background(), func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrClosed)
	err = s.Update(context.Background(), func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestCancelledUpdateDoesNotCommit(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	err := s.Update(ctx, func(tx storage.Tx) error {
		cancel()
		_, err := tx.AddSettings(ctx, core.Settings{UserName: "x"})
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.state.settings)
}
