package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorMonotonicWithinMillisecond(t *testing.T) {
	g := NewGenerator("")
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.New()
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, ids, "同一毫秒内生成的 ID 也应保持单调递增")
}

func TestGeneratorPrefix(t *testing.T) {
	g := NewGenerator("ses")
	id := g.New()
	require.True(t, strings.HasPrefix(id, "ses-"))
	assert.Len(t, id, len("ses-")+26)
}

func TestTimestamp(t *testing.T) {
	g := NewGenerator("art")
	before := time.Now().Add(-time.Second)
	id := g.New()
	after := time.Now().Add(time.Second)

	ts := Timestamp(id)
	assert.True(t, ts.After(before) && ts.Before(after))
	assert.True(t, Timestamp("not-a-ulid").IsZero())
}

func TestConcurrentUniqueness(t *testing.T) {
	g := NewGenerator("")
	const n = 50
	var (
		mu  sync.Mutex
		got = make(map[string]struct{}, n*20)
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				id := g.New()
				mu.Lock()
				got[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, got, n*20)
}
