package types

import (
	"fmt"
	"sort"
	"strings"

	ld "github.com/piprate/json-gold/ld"

	vocab "github.com/underlay/styx-client/vocab"
)

const defaultGraphName = "@default"

// FromRDF converts a json-gold dataset into quads, taking the graphs in
// name order so that the result is deterministic
func FromRDF(dataset *ld.RDFDataset) ([]Quad, error) {
	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	quads := []Quad{}
	for _, name := range names {
		for _, q := range dataset.Graphs[name] {
			var terms [4]Term
			for i, node := range [4]ld.Node{q.Subject, q.Predicate, q.Object, q.Graph} {
				term, err := fromNode(node)
				if err != nil {
					return nil, err
				}
				terms[i] = term
			}

			quad, err := NewQuad(terms[0], terms[1], terms[2], terms[3])
			if err != nil {
				return nil, err
			}
			quads = append(quads, quad)
		}
	}

	return quads, nil
}

func fromNode(node ld.Node) (Term, error) {
	switch n := node.(type) {
	case nil:
		return Default, nil
	case *ld.IRI:
		return NewResource(n.Value), nil
	case *ld.BlankNode:
		return NewBlankNode(strings.TrimPrefix(n.Attribute, vocab.BlankNodePrefix)), nil
	case *ld.Literal:
		if n.Language != "" {
			return NewLangLiteral(n.Value, n.Language), nil
		}
		return NewTypedLiteral(n.Value, n.Datatype), nil
	}
	return nil, &ValidationError{Reason: fmt.Sprintf("unexpected RDF node %T", node)}
}

// ToRDF builds a json-gold dataset from ground quads
func ToRDF(quads []Quad) (*ld.RDFDataset, error) {
	dataset := ld.NewRDFDataset()
	for _, q := range quads {
		var nodes [3]ld.Node
		for i, term := range [3]Term{q.Subject, q.Predicate, q.Object} {
			node, err := toNode(term)
			if err != nil {
				return nil, err
			}
			nodes[i] = node
		}

		name := defaultGraphName
		switch g := q.Graph.(type) {
		case nil, DefaultGraph:
		case Resource:
			name = g.ID
		case BlankNode:
			name = vocab.BlankNodePrefix + g.Label
		default:
			return nil, &ValidationError{Field: "graph", Reason: q.Graph.Kind().String() + " cannot name a stored graph"}
		}

		dataset.Graphs[name] = append(dataset.Graphs[name], ld.NewQuad(nodes[0], nodes[1], nodes[2], name))
	}

	return dataset, nil
}

func toNode(term Term) (ld.Node, error) {
	switch t := term.(type) {
	case Resource:
		return ld.NewIRI(t.ID), nil
	case BlankNode:
		return ld.NewBlankNode(vocab.BlankNodePrefix + t.Label), nil
	case Literal:
		t = t.normal()
		return ld.NewLiteral(t.Lexical, t.Datatype, t.Language), nil
	case nil:
		return nil, &ValidationError{Reason: "missing term"}
	}
	return nil, &ValidationError{Reason: term.Kind().String() + " has no RDF form"}
}
