package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnchanged(t *testing.T) {
	c := New(10)

	assert.False(t, c.Unchanged("css/a.css", []byte("a{}")))
	c.Remember("css/a.css", []byte("a{}"))
	assert.True(t, c.Unchanged("css/a.css", []byte("a{}")))
	assert.False(t, c.Unchanged("css/a.css", []byte("a{color:red}")))

	hits, misses, _ := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Remember("a", []byte("1"))
	c.Remember("b", []byte("2"))

	// touch a so b becomes least recently used
	assert.True(t, c.Unchanged("a", []byte("1")))
	c.Remember("c", []byte("3"))

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Unchanged("a", []byte("1")))
	assert.False(t, c.Unchanged("b", []byte("2")))
	assert.True(t, c.Unchanged("c", []byte("3")))

	_, _, evictions := c.Stats()
	assert.Equal(t, int64(1), evictions)
}

func TestForget(t *testing.T) {
	c := New(0)
	c.Remember("a", []byte("1"))
	c.Forget("a")
	c.Forget("missing")
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Unchanged("a", []byte("1")))
}

func TestConcurrentAccess(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("file-%d", i%20)
			c.Remember(key, []byte(key))
			c.Unchanged(key, []byte(key))
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
