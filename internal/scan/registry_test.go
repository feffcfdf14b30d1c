package scan

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FirstWins(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Register("h1", "/a.jpg"), "first registration is not a duplicate")
	assert.True(t, r.Register("h1", "/b.jpg"), "second registration is a duplicate")
	assert.True(t, r.Register("h1", "/c.jpg"))
	assert.False(t, r.Register("h2", "/d.jpg"), "distinct hash is not a duplicate")

	path, ok := r.Canonical("h1")
	require.True(t, ok)
	assert.Equal(t, "/a.jpg", path, "canonical holder is the first registrant")
}

func TestRegistry_Duplicates(t *testing.T) {
	r := NewRegistry()

	r.Register("h1", "/a.jpg")
	r.Register("h2", "/b.jpg")
	r.Register("h2", "/c.jpg")
	r.Register("h3", "/d.jpg")
	r.Register("h3", "/e.jpg")

	dups := r.Duplicates()
	assert.Equal(t, []string{"h2", "h3"}, dups, "duplicated hashes, sorted")
}

func TestRegistry_ConcurrentOneWinner(t *testing.T) {
	r := NewRegistry()

	const goroutines = 64
	results := make([]bool, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Register("same-hash", fmt.Sprintf("/p%d.jpg", i))
		}(i)
	}
	wg.Wait()

	firsts := 0
	for _, isDup := range results {
		if !isDup {
			firsts++
		}
	}
	assert.Equal(t, 1, firsts, "exactly one registrant must win")

	_, ok := r.Canonical("same-hash")
	assert.True(t, ok)
}
