package types

import (
	"strings"

	vocab "github.com/underlay/styx-client/vocab"
)

// ExternalKey encodes a blank node as "_:label", a variable as "?:name"
// and a resource as its identifier.
func ExternalKey(term Term) (string, error) {
	switch t := term.(type) {
	case BlankNode:
		return vocab.BlankNodePrefix + t.Label, nil
	case Variable:
		return vocab.VariablePrefix + t.Name, nil
	case Resource:
		return t.ID, nil
	case nil:
		return "", &ValidationError{Field: "key", Reason: "missing term"}
	}
	return "", &ValidationError{Field: "key", Reason: term.Kind().String() + " has no external key"}
}

// FromExternalKey dispatches on the two-character prefix
func FromExternalKey(id string) Term {
	switch {
	case strings.HasPrefix(id, vocab.BlankNodePrefix):
		return NewBlankNode(id[len(vocab.BlankNodePrefix):])
	case strings.HasPrefix(id, vocab.VariablePrefix):
		return NewVariable(id[len(vocab.VariablePrefix):])
	}
	return NewResource(id)
}

// IsLocalKey reports whether an external id names a blank node or a
// variable rather than a resource
func IsLocalKey(id string) bool {
	return strings.HasPrefix(id, vocab.BlankNodePrefix) || strings.HasPrefix(id, vocab.VariablePrefix)
}

// Variate rewrites a resource whose identifier extends namespace into
// the variable named by the rest of the identifier. A nil term becomes
// the default graph; everything else is returned unchanged.
func Variate(term Term, namespace string) Term {
	switch t := term.(type) {
	case nil:
		return Default
	case Resource:
		if len(t.ID) > len(namespace) && strings.HasPrefix(t.ID, namespace) {
			return NewVariable(t.ID[len(namespace):])
		}
	}
	return term
}

// VariateQuad applies Variate to all four positions
func VariateQuad(q Quad, namespace string) Quad {
	return Quad{
		Subject:   Variate(q.Subject, namespace),
		Predicate: Variate(q.Predicate, namespace),
		Object:    Variate(q.Object, namespace),
		Graph:     Variate(q.Graph, namespace),
	}
}
