package condition

import (
	"sort"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

// DetectCycle walks graph (field id -> ids it depends on) in order and returns
// the first cycle found as a closed path, e.g. [a b a]. It returns nil when the
// graph is acyclic. Graph keys missing from order are visited afterwards in
// sorted order.
func DetectCycle(order []string, graph map[string][]string) []string {
	const (
		white = iota
		grey
		black
	)

	color := make(map[string]int, len(graph))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, dep := range graph[id] {
			switch color[dep] {
			case grey:
				start := 0
				for i, node := range stack {
					if node == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), stack[start:]...), dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	rest := make([]string, 0, len(graph))
	for id := range graph {
		if color[id] == white {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// FindCycle reports the first condition cycle among fields, or nil.
// Conditions that fail other checks are left out of the graph.
func (e *Evaluator) FindCycle(fields []metadata.FormField) []string {
	plan, _ := e.build(fields, false)
	return DetectCycle(plan.order, plan.graph())
}
