package seeding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle             = errors.New("dependency cycle")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrDuplicateNode     = errors.New("duplicate node")
)

// Node is one entity type and the entity types it draws foreign keys from.
type Node struct {
	Name      string
	DependsOn []string
}

type Graph struct {
	nodes []Node
}

func NewGraph(nodes ...Node) *Graph {
	return &Graph{nodes: nodes}
}

// Order returns the node names so every node follows its dependencies. Ties
// are broken by declaration order, so an acyclic graph always yields the
// same sequence.
func (g *Graph) Order() ([]string, error) {
	index := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		if _, dup := index[n.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
		}
		index[n.Name] = i
	}

	pending := make([]int, len(g.nodes))
	dependents := make([][]int, len(g.nodes))
	for i, n := range g.nodes {
		for _, dep := range n.DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, n.Name, dep)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	done := make([]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, n := range g.nodes {
				if !done[i] {
					stuck = append(stuck, n.Name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		order = append(order, g.nodes[next].Name)
		for _, d := range dependents[next] {
			pending[d]--
		}
	}
	return order, nil
}
