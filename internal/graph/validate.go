package graph

import (
	"fmt"

	"pipeld/pkg/types"
)

// Validate runs the structural and type checks against a graph and returns a
// report. The function is pure: it reads nothing but its argument, so the
// same graph always yields the same issue list.
func Validate(g types.Graph) types.ValidationReport {
	var issues []types.Issue

	nodeByID := make(map[string]types.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeByID[n.ID] = n
	}

	// Required node presence.
	issues = append(issues, checkRequiredNodes(g)...)

	// Dangling references. Edges that fail here are excluded from the
	// remaining checks.
	live := make([]types.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if issue, ok := danglingIssue(nodeByID, e); ok {
			issues = append(issues, issue)
			continue
		}
		live = append(live, e)
	}

	// Type compatibility: exact media type match, no coercion.
	for _, e := range live {
		src, _ := FindOutput(nodeByID[e.From], e.Out)
		dst, _ := FindInput(nodeByID[e.To], e.In)
		if src.Contract.MediaType != dst.Contract.MediaType {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				EdgeID:   e.ID,
				Message: fmt.Sprintf("edge %s: media type mismatch: %s output %q carries %s but %s input %q expects %s",
					e.ID, e.From, e.Out, src.Contract.MediaType, e.To, e.In, dst.Contract.MediaType),
			})
		}
	}

	// Required-port coverage: exactly one incoming edge per required input.
	issues = append(issues, checkRequiredPorts(g, live)...)

	// Reachability from SessionRoot.
	reachable := reachableFrom(g, live, types.NodeSessionRoot)
	for _, n := range g.Nodes {
		if !reachable[n.ID] && n.Type != types.NodeSessionRoot {
			issues = append(issues, types.Issue{
				Severity: types.SeverityWarning,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %s is not reachable from the SessionRoot and will never run", n.ID),
			})
		}
	}

	// Sink presence: at least one reachable SunshineSink.
	sinkFound := false
	for _, n := range g.Nodes {
		if n.Type == types.NodeSunshineSink && reachable[n.ID] {
			sinkFound = true
			break
		}
	}
	if !sinkFound {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Message:  "no reachable SunshineSink: nothing will ever stream",
		})
	}

	// Cycle detection among non-control edges. Control loops are allowed:
	// supervisory signals may feed back.
	issues = append(issues, checkCycles(g, nodeByID, live)...)

	return types.ValidationReport{Status: overallStatus(issues), Issues: issues}
}

func overallStatus(issues []types.Issue) types.ValidationStatus {
	status := types.StatusOK
	for _, is := range issues {
		if is.Severity == types.SeverityError {
			return types.StatusError
		}
		status = types.StatusWarning
	}
	return status
}

func checkRequiredNodes(g types.Graph) []types.Issue {
	var issues []types.Issue
	for _, required := range []types.NodeType{types.NodeSessionRoot, types.NodeGameLaunch} {
		count := 0
		for _, n := range g.Nodes {
			if n.Type == required {
				count++
			}
		}
		switch {
		case count == 0:
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("graph must contain exactly one %s node, found none", required),
			})
		case count > 1:
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("graph must contain exactly one %s node, found %d", required, count),
			})
		}
	}
	return issues
}

func danglingIssue(nodes map[string]types.Node, e types.Edge) (types.Issue, bool) {
	src, ok := nodes[e.From]
	if !ok {
		return types.Issue{Severity: types.SeverityError, EdgeID: e.ID,
			Message: fmt.Sprintf("edge %s references missing source node %s", e.ID, e.From)}, true
	}
	if _, ok := FindOutput(src, e.Out); !ok {
		return types.Issue{Severity: types.SeverityError, EdgeID: e.ID,
			Message: fmt.Sprintf("edge %s references missing output port %s on node %s", e.ID, e.Out, e.From)}, true
	}
	dst, ok := nodes[e.To]
	if !ok {
		return types.Issue{Severity: types.SeverityError, EdgeID: e.ID,
			Message: fmt.Sprintf("edge %s references missing target node %s", e.ID, e.To)}, true
	}
	if _, ok := FindInput(dst, e.In); !ok {
		return types.Issue{Severity: types.SeverityError, EdgeID: e.ID,
			Message: fmt.Sprintf("edge %s references missing input port %s on node %s", e.ID, e.In, e.To)}, true
	}
	return types.Issue{}, false
}

func checkRequiredPorts(g types.Graph, edges []types.Edge) []types.Issue {
	var issues []types.Issue
	incoming := make(map[string]int)
	for _, e := range edges {
		incoming[e.To+"\x00"+e.In]++
	}
	for _, n := range g.Nodes {
		for _, p := range n.Inputs {
			if !p.Required {
				continue
			}
			switch count := incoming[n.ID+"\x00"+p.ID]; {
			case count == 0:
				issues = append(issues, types.Issue{
					Severity: types.SeverityError,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("required input %q of node %s has no incoming edge", p.ID, n.ID),
				})
			case count > 1:
				issues = append(issues, types.Issue{
					Severity: types.SeverityError,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("required input %q of node %s has %d incoming edges, fan-in is not permitted", p.ID, n.ID, count),
				})
			}
		}
	}
	return issues
}

func reachableFrom(g types.Graph, edges []types.Edge, root types.NodeType) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	reached := make(map[string]bool)
	var stack []string
	for _, n := range g.Nodes {
		if n.Type == root {
			stack = append(stack, n.ID)
			reached[n.ID] = true
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[id] {
			if !reached[next] {
				reached[next] = true
				stack = append(stack, next)
			}
		}
	}
	return reached
}

// checkCycles flags directed cycles formed by non-control edges.
func checkCycles(g types.Graph, nodes map[string]types.Node, edges []types.Edge) []types.Issue {
	adj := make(map[string][]string)
	for _, e := range edges {
		src, _ := FindOutput(nodes[e.From], e.Out)
		if src.Contract.MediaType == types.MediaControl {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var cycleAt string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				if visit(next) {
					return true
				}
			case gray:
				cycleAt = next
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			if visit(n.ID) {
				return []types.Issue{{
					Severity: types.SeverityError,
					NodeID:   cycleAt,
					Message:  fmt.Sprintf("directed cycle through node %s on non-control ports", cycleAt),
				}}
			}
		}
	}
	return nil
}
