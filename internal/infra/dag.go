package infra

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/buildandburn/bb/internal/errors"
)

// NodeKind distinguishes graph node types.
type NodeKind string

const (
	// NodeModule is a provisioning module invocation.
	NodeModule NodeKind = "module"
	// NodePolicy is an access-policy binding.
	NodePolicy NodeKind = "policy"
)

// Node is one vertex of the plan DAG.
type Node struct {
	// ID is the unique node identifier.
	ID string

	// Kind distinguishes modules from policy bindings.
	Kind NodeKind

	// DependsOn names nodes that must complete first.
	DependsOn []string
}

// Graph is the plan's dependency DAG. Nodes at the same level have no
// ordering constraint between them and may run concurrently.
type Graph struct {
	nodes      map[string]*Node
	dependents map[string][]string
	levels     [][]string
}

// buildGraph constructs the DAG for a compiled plan: network before
// cluster, cluster before every dependency module, each dependency module
// before its enabled policy bindings. Dependency branches stay independent
// of each other.
func buildGraph(p *Plan) (*Graph, error) {
	var nodes []Node

	for i := range p.Modules {
		mod := &p.Modules[i]
		nodes = append(nodes, Node{
			ID:        mod.Name,
			Kind:      NodeModule,
			DependsOn: mod.DependsOn,
		})
	}

	for _, pol := range p.Policies {
		if !pol.Enabled {
			continue
		}
		nodes = append(nodes, Node{
			ID:        pol.Name,
			Kind:      NodePolicy,
			DependsOn: []string{pol.Module},
		})
	}

	return NewGraph(nodes)
}

// NewGraph validates nodes and computes Kahn levels. Duplicate ids,
// unknown dependency targets and cycles are all rejected.
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]*Node, len(nodes)),
		dependents: make(map[string][]string),
	}

	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			return nil, errors.NewPlanError("graph node has empty id")
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, errors.NewPlanError("duplicate graph node %q", n.ID)
		}
		g.nodes[n.ID] = n
	}

	inDegree := make(map[string]int, len(nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}

	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				return nil, errors.NewPlanError("node %q depends on unknown node %q", n.ID, dep)
			}
			g.dependents[dep] = append(g.dependents[dep], n.ID)
			inDegree[n.ID]++
		}
	}

	// Kahn's algorithm with level tracking. Levels are sorted for
	// deterministic output.
	current := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			current = append(current, id)
		}
	}
	sort.Strings(current)

	processed := 0
	for len(current) > 0 {
		g.levels = append(g.levels, current)
		processed += len(current)

		var next []string
		for _, id := range current {
			for _, dep := range g.dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if processed != len(g.nodes) {
		return nil, errors.NewPlanError("circular dependency detected: %s", formatCycle(g.findCycle()))
	}

	return g, nil
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Levels returns the execution levels in provisioning order. Nodes within
// one level can run in parallel.
func (g *Graph) Levels() [][]string {
	return g.levels
}

// ReverseLevels returns the levels in teardown order: dependents are
// destroyed before the nodes they depend on.
func (g *Graph) ReverseLevels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		out[len(g.levels)-1-i] = level
	}
	return out
}

// Walk visits every node level by level, running up to parallel visits
// concurrently within one level. A failed visit stops the walk after its
// level drains; later levels never start.
func (g *Graph) Walk(ctx context.Context, parallel int, fn func(ctx context.Context, n *Node) error) error {
	return g.walk(ctx, g.levels, parallel, fn)
}

// WalkReverse is Walk in teardown order.
func (g *Graph) WalkReverse(ctx context.Context, parallel int, fn func(ctx context.Context, n *Node) error) error {
	return g.walk(ctx, g.ReverseLevels(), parallel, fn)
}

func (g *Graph) walk(ctx context.Context, levels [][]string, parallel int, fn func(ctx context.Context, n *Node) error) error {
	if parallel < 1 {
		parallel = 1
	}

	for _, level := range levels {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(parallel)

		for _, id := range level {
			node := g.nodes[id]
			eg.Go(func() error {
				return fn(egCtx, node)
			})
		}

		if err := eg.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// findCycle locates one cycle for the error message via DFS.
func (g *Graph) findCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var cycle []string
	var visit func(id string, path []string) bool

	visit = func(id string, path []string) bool {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range g.dependents[id] {
			if !visited[dep] {
				if visit(dep, path) {
					return true
				}
			} else if onStack[dep] {
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, path[start:]...), dep)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] && visit(id, nil) {
			break
		}
	}

	return cycle
}

func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return "unknown"
	}
	return strings.Join(cycle, " -> ")
}

// String renders the levels for debug logging.
func (g *Graph) String() string {
	var b strings.Builder
	for i, level := range g.levels {
		fmt.Fprintf(&b, "level %d: %s\n", i, strings.Join(level, ", "))
	}
	return b.String()
}
