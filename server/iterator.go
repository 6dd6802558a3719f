package server

import (
	"fmt"
	"sort"

	types "github.com/underlay/styx-client/types"
)

// iterator enumerates every solution of a pattern over a snapshot of
// the store. Solutions are rows of values in domain order, sorted and
// without duplicates, so that consecutive rows share a prefix and
// next only has to send the suffix that changed.
type iterator struct {
	pattern []types.Quad
	sources []source
	domain  []types.Term
	rows    [][]types.Term

	// cursor is the row last returned by next; -1 before the first.
	// restart means the next row is sent in full.
	cursor  int
	restart bool
}

func isVariable(term types.Term) bool {
	switch term.(type) {
	case types.Variable, types.BlankNode:
		return true
	}
	return false
}

func newIterator(pattern []types.Quad, sources []source, domain, index []types.Term) (*iterator, error) {
	it := &iterator{pattern: pattern, sources: sources, cursor: -1, restart: true}

	variables := map[types.Term]bool{}
	order := []types.Term{}
	for _, q := range pattern {
		for _, term := range q.Terms() {
			if isVariable(term) && !variables[term] {
				variables[term] = true
				order = append(order, term)
			}
		}
	}

	seen := map[types.Term]bool{}
	for _, term := range domain {
		if !variables[term] {
			return nil, fmt.Errorf("domain term %s does not appear in the pattern", term)
		} else if seen[term] {
			return nil, fmt.Errorf("domain term %s appears twice", term)
		}
		seen[term] = true
		it.domain = append(it.domain, term)
	}

	for _, term := range order {
		if !seen[term] {
			it.domain = append(it.domain, term)
		}
	}

	it.solve(0, map[types.Term]types.Term{})
	sort.Slice(it.rows, func(i, j int) bool { return compareRows(it.rows[i], it.rows[j]) < 0 })

	unique := it.rows[:0]
	for i, row := range it.rows {
		if i == 0 || compareRows(row, it.rows[i-1]) != 0 {
			unique = append(unique, row)
		}
	}
	it.rows = unique

	if index != nil {
		if err := it.seek(index); err != nil {
			return nil, err
		}
	}

	return it, nil
}

func (it *iterator) solve(i int, binding map[types.Term]types.Term) {
	if i == len(it.pattern) {
		row := make([]types.Term, len(it.domain))
		for j, term := range it.domain {
			row[j] = binding[term]
		}
		it.rows = append(it.rows, row)
		return
	}

	for _, src := range it.sources {
		if extended, ok := unify(it.pattern[i], src.quad, binding); ok {
			it.solve(i+1, extended)
		}
	}
}

// unify matches a pattern quad against a stored quad, returning the
// binding extended with any new variables. A default graph in the
// pattern matches every graph.
func unify(pattern, quad types.Quad, binding map[types.Term]types.Term) (map[types.Term]types.Term, bool) {
	var extended map[types.Term]types.Term
	patternTerms, quadTerms := pattern.Terms(), quad.Terms()
	for i, p := range patternTerms {
		value := quadTerms[i]
		if i == 3 && p.Kind() == types.DefaultGraphKind {
			continue
		} else if !isVariable(p) {
			if !p.Equal(value) {
				return nil, false
			}
			continue
		} else if value.Kind() == types.DefaultGraphKind {
			return nil, false
		}

		bound, has := binding[p]
		if !has && extended != nil {
			bound, has = extended[p]
		}

		if has {
			if !bound.Equal(value) {
				return nil, false
			}
			continue
		}

		if extended == nil {
			extended = make(map[types.Term]types.Term, len(binding)+1)
			for key, value := range binding {
				extended[key] = value
			}
		}
		extended[p] = value
	}

	if extended == nil {
		return binding, true
	}
	return extended, true
}

func compareRows(a, b []types.Term) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := types.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func (it *iterator) position(node types.Term) int {
	for i, term := range it.domain {
		if term == node {
			return i
		}
	}
	return -1
}

// next advances to the following row and returns the values that
// changed, which are a suffix of the row. With a node it first skips
// every row that agrees with the current one up to and including the
// node's position. A nil result means there are no more rows.
func (it *iterator) next(node types.Term) ([]types.Term, error) {
	k := -1
	if node != nil {
		if k = it.position(node); k < 0 {
			return nil, fmt.Errorf("%s is not in the domain", node)
		}
	}

	if it.cursor >= len(it.rows) {
		return nil, nil
	}

	next := it.cursor + 1
	if k >= 0 && it.cursor >= 0 {
		current := it.rows[it.cursor]
		for next < len(it.rows) && compareRows(it.rows[next][:k+1], current[:k+1]) == 0 {
			next++
		}
	}

	if next >= len(it.rows) {
		it.cursor = len(it.rows)
		return nil, nil
	}

	start := 0
	if !it.restart && it.cursor >= 0 {
		previous := it.rows[it.cursor]
		for start < len(previous)-1 && previous[start] == it.rows[next][start] {
			start++
		}
	}

	it.cursor, it.restart = next, false
	return it.rows[next][start:], nil
}

// seek positions the iterator before the first row at or after index,
// compared over the length of index; the following row is sent in full
func (it *iterator) seek(index []types.Term) error {
	if len(index) > len(it.domain) {
		return fmt.Errorf("index of length %d exceeds the domain", len(index))
	}

	j := sort.Search(len(it.rows), func(j int) bool {
		return compareRows(it.rows[j][:len(index)], index) >= 0
	})

	it.cursor, it.restart = j-1, true
	return nil
}

// prov lists, for each pattern quad, the named origins of the stored
// quads that match it under the current row. A row is nil when only
// the service root matched.
func (it *iterator) prov() [][]types.Term {
	if it.cursor < 0 || it.cursor >= len(it.rows) {
		return nil
	}

	binding := make(map[types.Term]types.Term, len(it.domain))
	for i, term := range it.domain {
		binding[term] = it.rows[it.cursor][i]
	}

	result := make([][]types.Term, len(it.pattern))
	for i, q := range it.pattern {
		seen := map[types.Term]bool{}
		for _, src := range it.sources {
			if _, ok := unify(q, src.quad, binding); !ok || seen[src.origin] {
				continue
			} else if src.origin.Kind() != types.ResourceKind {
				continue
			}
			seen[src.origin] = true
			result[i] = append(result[i], src.origin)
		}
	}

	return result
}
