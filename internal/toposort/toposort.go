// Package toposort linearizes the control-flow graph using Kahn's
// algorithm. It is the sole cycle-detection mechanism: a cycle surfaces as
// a *CycleError and no partial order is returned.
package toposort

import (
	"fmt"
	"sort"
)

// CycleError reports that the control graph contains a cycle. Remaining
// lists the vertices that could not be ordered, sorted.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in control-flow graph involving %d node(s): %v", len(e.Remaining), e.Remaining)
}

// Sort returns a topological order over all vertices.
//
// Ties among simultaneously-ready vertices break lexicographically by
// instance id, so the emitted order is reproducible run to run. Edges to
// vertices absent from the vertex set are a programming error upstream and
// ignored here.
func Sort(successors map[string][]string, vertices []string) ([]string, error) {
	inDegree := make(map[string]int, len(vertices))
	for _, v := range vertices {
		inDegree[v] = 0
	}
	for _, v := range vertices {
		for _, child := range successors[v] {
			if _, ok := inDegree[child]; ok {
				inDegree[child]++
			}
		}
	}

	var ready []string
	for _, v := range vertices {
		if inDegree[v] == 0 {
			ready = append(ready, v)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(vertices))
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)

		var unlocked []string
		for _, child := range successors[v] {
			if _, ok := inDegree[child]; !ok {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				unlocked = append(unlocked, child)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(vertices) {
		ordered := make(map[string]bool, len(order))
		for _, v := range order {
			ordered[v] = true
		}
		var remaining []string
		for _, v := range vertices {
			if !ordered[v] {
				remaining = append(remaining, v)
			}
		}
		sort.Strings(remaining)
		return nil, &CycleError{Remaining: remaining}
	}

	return order, nil
}
