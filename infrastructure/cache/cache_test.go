package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour})

	c.Set("plugin_abc", "compiled-program", 0)

	value, ok := c.Get("plugin_abc")
	require.True(t, ok)
	assert.Equal(t, "compiled-program", value)
}

func TestGetExpired(t *testing.T) {
	c := New(Config{DefaultTTL: time.Millisecond, CleanupInterval: time.Hour})

	c.Set("plugin_abc", "compiled-program", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("plugin_abc")
	assert.False(t, ok)
}

func TestInvalidateAllBumpsVersion(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour})

	c.Set("plugin_abc", "v1", 0)
	_, v1, _ := c.GetVersion("plugin_abc")

	c.InvalidateAll()
	_, ok := c.Get("plugin_abc")
	assert.False(t, ok)
	assert.Equal(t, v1+1, c.CurrentVersion())
}

func TestInvalidateSingleKey(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour})

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Size())
}
