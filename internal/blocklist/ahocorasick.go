package blocklist

// automaton is an Aho-Corasick automaton over runes. It reports every occurrence of every
// pattern, overlapping ones included, in a single pass.
type automaton struct {
	nodes   []acNode
	lengths []int
}

type acNode struct {
	children map[rune]int
	fail     int
	// outputs lists the patterns ending at this node, including those reached by fail links.
	outputs []int
}

func newAutomaton(patterns [][]rune) *automaton {
	a := &automaton{
		nodes:   []acNode{{children: map[rune]int{}}},
		lengths: make([]int, len(patterns)),
	}

	for i, p := range patterns {
		a.lengths[i] = len(p)
		if len(p) == 0 {
			continue
		}
		cur := 0
		for _, r := range p {
			next, ok := a.nodes[cur].children[r]
			if !ok {
				next = len(a.nodes)
				a.nodes = append(a.nodes, acNode{children: map[rune]int{}})
				a.nodes[cur].children[r] = next
			}
			cur = next
		}
		a.nodes[cur].outputs = append(a.nodes[cur].outputs, i)
	}

	// Breadth-first so that a node's fail target is finished before the node itself.
	queue := make([]int, 0, len(a.nodes))
	for _, child := range a.nodes[0].children {
		a.nodes[child].fail = 0
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for r, child := range a.nodes[cur].children {
			f := a.nodes[cur].fail
			for f != 0 {
				if _, ok := a.nodes[f].children[r]; ok {
					break
				}
				f = a.nodes[f].fail
			}
			if next, ok := a.nodes[f].children[r]; ok {
				a.nodes[child].fail = next
			} else {
				a.nodes[child].fail = 0
			}
			a.nodes[child].outputs = append(a.nodes[child].outputs, a.nodes[a.nodes[child].fail].outputs...)
			queue = append(queue, child)
		}
	}

	return a
}

// scan calls emit for every occurrence with the pattern index and the rune range
// [start, end) in text.
func (a *automaton) scan(text []rune, emit func(pattern, start, end int)) {
	state := 0
	for i, r := range text {
		for state != 0 {
			if _, ok := a.nodes[state].children[r]; ok {
				break
			}
			state = a.nodes[state].fail
		}
		if next, ok := a.nodes[state].children[r]; ok {
			state = next
		}
		for _, p := range a.nodes[state].outputs {
			emit(p, i+1-a.lengths[p], i+1)
		}
	}
}
