package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient returns a fixed reply and counts calls.
type stubClient struct {
	err   error
	reply string
	calls atomic.Int32
}

func (s *stubClient) Complete(_ context.Context, _ string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompletionCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newCompletionCache(5 * time.Minute)

		_, found := cache.get("non-existent")
		assert.False(t, found)

		cache.set("key1", "Acme - 01_01_2024 - 250 - USD")

		retrieved, found := cache.get("key1")
		assert.True(t, found)
		assert.Equal(t, "Acme - 01_01_2024 - 250 - USD", retrieved)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("expiration", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		cache := newCompletionCache(time.Minute)
		cache.now = func() time.Time { return now }

		cache.set("key2", "reply")
		_, found := cache.get("key2")
		assert.True(t, found)

		now = now.Add(2 * time.Minute)
		_, found = cache.get("key2")
		assert.False(t, found)

		// Expired entries are dropped on the next write.
		cache.set("key3", "reply")
		assert.Equal(t, 1, cache.size())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := newCompletionCache(5 * time.Minute)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					cache.set("concurrent", "reply")
					cache.get("concurrent")
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, cache.size())
	})
}

func TestCachedClient(t *testing.T) {
	t.Run("repeated prompts hit the cache", func(t *testing.T) {
		stub := &stubClient{reply: "Acme - 01_01_2024 - 250 - USD"}
		client := newCachedClient(stub, time.Minute, discardLogger())

		for range 3 {
			got, err := client.Complete(context.Background(), "same prompt")
			require.NoError(t, err)
			assert.Equal(t, stub.reply, got)
		}
		assert.Equal(t, int32(1), stub.calls.Load())

		_, err := client.Complete(context.Background(), "different prompt")
		require.NoError(t, err)
		assert.Equal(t, int32(2), stub.calls.Load())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		stub := &stubClient{err: errors.New("upstream down")}
		client := newCachedClient(stub, time.Minute, discardLogger())

		_, err := client.Complete(context.Background(), "prompt")
		require.Error(t, err)
		_, err = client.Complete(context.Background(), "prompt")
		require.Error(t, err)

		assert.Equal(t, int32(2), stub.calls.Load())
	})
}
