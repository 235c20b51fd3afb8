package scorer

import (
	"context"
	"testing"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func testChains(fetch func(ctx context.Context) (map[string]bool, error)) *Chains {
	return &Chains{
		cache: gocache.New(gocache.NoExpiration, 0),
		fetch: fetch,
	}
}

func TestChainsLoadsOnce(t *testing.T) {
	calls := 0
	c := testChains(func(context.Context) (map[string]bool, error) {
		calls++
		return map[string]bool{"joe's diner chain": true}, nil
	})

	ctx := context.Background()
	assert.True(t, c.Contains(ctx, "Joe's Diner Chain"))
	assert.True(t, c.Contains(ctx, "  joe's   diner  chain "))
	assert.False(t, c.Contains(ctx, "Acme Plumbing"))
	assert.Equal(t, 1, calls)

	// Builtins are merged into the fetched set.
	assert.True(t, c.Contains(ctx, "Starbucks"))
}

func TestChainsFallsBackToBuiltins(t *testing.T) {
	calls := 0
	c := testChains(func(context.Context) (map[string]bool, error) {
		calls++
		return nil, eris.New("sparql timeout")
	})

	ctx := context.Background()
	assert.True(t, c.Contains(ctx, "McDonald's"))
	assert.False(t, c.Contains(ctx, "Acme Plumbing"))

	// Failure is not cached; the next call retries.
	c.Contains(ctx, "Tim Hortons")
	assert.Equal(t, 2, calls)
}

func TestChainsReload(t *testing.T) {
	calls := 0
	c := testChains(func(context.Context) (map[string]bool, error) {
		calls++
		return map[string]bool{}, nil
	})

	ctx := context.Background()
	c.Contains(ctx, "anything")
	c.Contains(ctx, "anything")
	assert.Equal(t, 1, calls)

	c.Reload()
	c.Contains(ctx, "anything")
	assert.Equal(t, 2, calls)
}

func TestParseSPARQLResponse(t *testing.T) {
	assert.Equal(t, "tim hortons", normalizeChainName("  Tim   Hortons "))
	assert.Equal(t, "", normalizeChainName("   "))
}
