package infra

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

func diamond(t *testing.T) *Graph {
	t.Helper()

	g, err := NewGraph([]Node{
		{ID: "a", Kind: NodeModule},
		{ID: "b", Kind: NodeModule, DependsOn: []string{"a"}},
		{ID: "c", Kind: NodeModule, DependsOn: []string{"a"}},
		{ID: "d", Kind: NodeModule, DependsOn: []string{"b", "c"}},
	})
	require.NoError(t, err)
	return g
}

func TestNewGraph(t *testing.T) {
	t.Run("computes levels", func(t *testing.T) {
		g := diamond(t)

		assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, g.Levels())
		assert.Equal(t, [][]string{{"d"}, {"b", "c"}, {"a"}}, g.ReverseLevels())
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewGraph([]Node{{ID: "a"}, {ID: "a"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, bberrors.ErrPlan))
	})

	t.Run("rejects unknown dependency target", func(t *testing.T) {
		_, err := NewGraph([]Node{{ID: "a", DependsOn: []string{"ghost"}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("detects cycles", func(t *testing.T) {
		_, err := NewGraph([]Node{
			{ID: "a", DependsOn: []string{"c"}},
			{ID: "b", DependsOn: []string{"a"}},
			{ID: "c", DependsOn: []string{"b"}},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, bberrors.ErrPlan))
		assert.Contains(t, err.Error(), "circular dependency")
	})

	t.Run("empty graph", func(t *testing.T) {
		g, err := NewGraph(nil)
		require.NoError(t, err)
		assert.Zero(t, g.Len())
		assert.Empty(t, g.Levels())
	})
}

func TestWalk(t *testing.T) {
	t.Run("visits every node in level order", func(t *testing.T) {
		g := diamond(t)

		var mu sync.Mutex
		order := make(map[string]int)
		step := 0

		err := g.Walk(context.Background(), 2, func(_ context.Context, n *Node) error {
			mu.Lock()
			defer mu.Unlock()
			order[n.ID] = step
			step++
			return nil
		})
		require.NoError(t, err)
		require.Len(t, order, 4)

		assert.Less(t, order["a"], order["b"])
		assert.Less(t, order["a"], order["c"])
		assert.Greater(t, order["d"], order["b"])
		assert.Greater(t, order["d"], order["c"])
	})

	t.Run("a failed level stops the walk", func(t *testing.T) {
		g := diamond(t)
		boom := errors.New("boom")

		var visited []string
		var mu sync.Mutex

		err := g.Walk(context.Background(), 2, func(_ context.Context, n *Node) error {
			mu.Lock()
			visited = append(visited, n.ID)
			mu.Unlock()
			if n.ID == "b" {
				return boom
			}
			return nil
		})

		require.ErrorIs(t, err, boom)
		assert.NotContains(t, visited, "d", "levels after a failure never start")
	})

	t.Run("reverse walk starts at the leaves", func(t *testing.T) {
		g := diamond(t)

		var first string
		var once sync.Once

		err := g.WalkReverse(context.Background(), 1, func(_ context.Context, n *Node) error {
			once.Do(func() { first = n.ID })
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "d", first)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		g := diamond(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := g.Walk(ctx, 1, func(ctx context.Context, _ *Node) error {
			return ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
