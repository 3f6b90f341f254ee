package filter

import "sort"

// PermutationSet groups the permutations of one model that share a name
// across regions, e.g. every "damaged" permutation of a vehicle. It is a view
// over the tree: its state is derived from its members, and changing it
// changes them.
type PermutationSet struct {
	Label        string
	Permutations []*Node
}

// State returns Checked or Unchecked when every member agrees, else Partial.
func (s *PermutationSet) State() CheckState {
	if len(s.Permutations) == 0 {
		return Unchecked
	}
	state := s.Permutations[0].State
	for _, p := range s.Permutations[1:] {
		if p.State != state {
			return Partial
		}
	}
	return state
}

// SetState sets every member permutation to state and refreshes their
// regions and models.
func (s *PermutationSet) SetState(state CheckState) {
	for _, p := range s.Permutations {
		p.SetState(state)
	}
}

// Toggle clears the set if it is fully checked and checks it otherwise.
func (s *PermutationSet) Toggle() {
	if s.State() == Checked {
		s.SetState(Unchecked)
	} else {
		s.SetState(Checked)
	}
}

// PermutationSets returns the permutation sets of a model or placement node,
// ordered by label. Other node kinds have none.
func (n *Node) PermutationSets() []*PermutationSet {
	if n.Kind != KindModel && n.Kind != KindPlacement {
		return nil
	}

	byLabel := make(map[string]*PermutationSet)
	for _, r := range n.Children {
		for _, p := range r.Children {
			set, ok := byLabel[p.Label]
			if !ok {
				set = &PermutationSet{Label: p.Label}
				byLabel[p.Label] = set
			}
			set.Permutations = append(set.Permutations, p)
		}
	}

	sets := make([]*PermutationSet, 0, len(byLabel))
	for _, set := range byLabel {
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Label < sets[j].Label })
	return sets
}

// PermutationSet returns the set named label of a model or placement node.
func (n *Node) PermutationSet(label string) (*PermutationSet, bool) {
	for _, set := range n.PermutationSets() {
		if set.Label == label {
			return set, true
		}
	}
	return nil, false
}
