package types

import "strings"

// Quad is a subject, predicate, object, graph tuple.
// Construct with NewQuad; quads are compared structurally with Equal.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// NewQuad checks the position constraints and returns a quad.
// A nil graph is the default graph.
func NewQuad(subject, predicate, object, graph Term) (Quad, error) {
	if graph == nil {
		graph = Default
	}

	if err := checkPosition("subject", subject, ResourceKind, BlankNodeKind, VariableKind); err != nil {
		return Quad{}, err
	} else if err := checkPosition("predicate", predicate, ResourceKind, BlankNodeKind, VariableKind); err != nil {
		return Quad{}, err
	} else if object == nil {
		return Quad{}, &ValidationError{Field: "object", Reason: "missing term"}
	} else if object.Kind() == DefaultGraphKind {
		return Quad{}, &ValidationError{Field: "object", Reason: "default graph is not a valid object"}
	} else if err := checkPosition("graph", graph, ResourceKind, BlankNodeKind, VariableKind, DefaultGraphKind); err != nil {
		return Quad{}, err
	}

	return Quad{subject, predicate, object, graph}, nil
}

// MustQuad is NewQuad for statically known quads; it panics on error
func MustQuad(subject, predicate, object, graph Term) Quad {
	q, err := NewQuad(subject, predicate, object, graph)
	if err != nil {
		panic(err)
	}
	return q
}

func checkPosition(field string, term Term, kinds ...Kind) error {
	if term == nil {
		return &ValidationError{Field: field, Reason: "missing term"}
	}
	for _, k := range kinds {
		if term.Kind() == k {
			return nil
		}
	}
	return &ValidationError{Field: field, Reason: term.Kind().String() + " is not allowed here"}
}

// Equal compares all four positions
func (q Quad) Equal(other Quad) bool {
	return q.Subject.Equal(other.Subject) &&
		q.Predicate.Equal(other.Predicate) &&
		q.Object.Equal(other.Object) &&
		q.Graph.Equal(other.Graph)
}

// Terms returns the four positions in order
func (q Quad) Terms() [4]Term {
	return [4]Term{q.Subject, q.Predicate, q.Object, q.Graph}
}

// String renders the quad as an N-Quads line without the trailing newline
func (q Quad) String() string {
	terms := []string{q.Subject.String(), q.Predicate.String(), q.Object.String()}
	if q.Graph != nil && q.Graph.Kind() != DefaultGraphKind {
		terms = append(terms, q.Graph.String())
	}
	return strings.Join(terms, " ") + " ."
}
