package platform_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oteto/gonkey-playground/engines/mocks"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot(t *testing.T) {
	t.Parallel()

	t.Run("starts absent", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		b, ok := s.Get()
		assert.False(t, ok)
		assert.Nil(t, b)
		assert.Equal(t, platform.StatusAbsent, s.Status())
		assert.NoError(t, s.Err())
	})

	t.Run("bind is one way", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		first := new(mocks.Binding)
		second := new(mocks.Binding)

		require.NoError(t, s.Bind(first))
		require.ErrorIs(t, s.Bind(second), platform.ErrAlreadyBound)

		b, ok := s.Get()
		require.True(t, ok)
		assert.Same(t, first, b)
		assert.Equal(t, platform.StatusBound, s.Status())
	})

	t.Run("nil binding rejected", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		require.ErrorIs(t, s.Bind(nil), platform.ErrNilBinding)
		assert.Equal(t, platform.StatusAbsent, s.Status())
	})

	t.Run("failure recorded while absent", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		loadErr := errors.New("fetch failed")
		s.Fail(loadErr)
		assert.Equal(t, platform.StatusFailed, s.Status())
		assert.ErrorIs(t, s.Err(), loadErr)

		require.NoError(t, s.Bind(new(mocks.Binding)))
		assert.Equal(t, platform.StatusBound, s.Status())
		assert.NoError(t, s.Err())

		s.Fail(errors.New("late failure"))
		assert.NoError(t, s.Err())
	})

	t.Run("ready closes on bind", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		select {
		case <-s.Ready():
			t.Fatal("ready closed before bind")
		default:
		}
		require.NoError(t, s.Bind(new(mocks.Binding)))
		select {
		case <-s.Ready():
		case <-time.After(time.Second):
			t.Fatal("ready not closed after bind")
		}
	})

	t.Run("wait returns binding", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		want := new(mocks.Binding)
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = s.Bind(want)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b, err := s.Wait(ctx)
		require.NoError(t, err)
		assert.Same(t, want, b)
	})

	t.Run("wait reports load failure on timeout", func(t *testing.T) {
		t.Parallel()
		s := platform.NewSlot()
		loadErr := errors.New("instantiate failed")
		s.Fail(loadErr)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := s.Wait(ctx)
		require.ErrorIs(t, err, loadErr)
	})

	t.Run("new bound slot", func(t *testing.T) {
		t.Parallel()
		s, err := platform.NewBoundSlot(new(mocks.Binding))
		require.NoError(t, err)
		assert.Equal(t, platform.StatusBound, s.Status())

		_, err = platform.NewBoundSlot(nil)
		require.ErrorIs(t, err, platform.ErrNilBinding)
	})
}
