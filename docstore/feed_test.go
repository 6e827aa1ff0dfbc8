package docstore

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"campus-eats/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Feed = (*PGFeed)(nil)
	_ Feed = (*AMQPFeed)(nil)
)

func TestNewPGFeed_DefaultChannel(t *testing.T) {
	assert.Equal(t, DefaultChannel, NewPGFeed(nil, "").channel)
	assert.Equal(t, "custom", NewPGFeed(nil, "custom").channel)
}

func TestDialAMQPFeed_Unreachable(t *testing.T) {
	_, err := DialAMQPFeed(AMQPConfig{Host: "127.0.0.1", Port: 1, User: "guest", Password: "guest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial rabbitmq")
}

// collector records collection names a feed delivers.
type collector struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *collector) fn(_ context.Context, collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[collection] = true
}

func (c *collector) has(collection string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[collection]
}

// roundTrip publishes until the listener reports the collection, then stops it.
func roundTrip(t *testing.T, f Feed) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{seen: make(map[string]bool)}
	done := make(chan error, 1)
	go func() { done <- f.Listen(ctx, c.fn) }()

	col := "feed_" + uuid.NewString()
	require.Eventually(t, func() bool {
		assert.NoError(t, f.Publish(context.Background(), col))
		return c.has(col)
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestPGFeed_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping feed integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping feed integration test: no DB pool")
	}
	roundTrip(t, NewPGFeed(db.Pool, "docstore_test_"+strconv.FormatInt(time.Now().UnixNano(), 10)))
}

// Set AMQP_TEST_HOST (and optionally AMQP_TEST_PORT) to run against a broker.
func TestAMQPFeed_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping feed integration test in short mode")
	}
	host := os.Getenv("AMQP_TEST_HOST")
	if host == "" {
		t.Skip("skipping feed integration test: AMQP_TEST_HOST not set")
	}
	port := 5672
	if p, err := strconv.Atoi(os.Getenv("AMQP_TEST_PORT")); err == nil {
		port = p
	}
	f, err := DialAMQPFeed(AMQPConfig{
		Host:     host,
		Port:     port,
		User:     "guest",
		Password: "guest",
		Exchange: "docstore.test." + uuid.NewString(),
	})
	require.NoError(t, err)
	defer f.Close()
	roundTrip(t, f)
}
