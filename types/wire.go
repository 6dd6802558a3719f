package types

import (
	"encoding/json"
)

// WireTerm is the compact JSON encoding of a Term used on the RPC socket.
// Resources, blank nodes and variables encode as {kind, value}; literals
// as {kind, value, language, datatype}; the default graph as {kind}.
type WireTerm struct {
	Kind     string
	Value    string
	Language string
	Datatype *WireTerm
}

// WireQuad is the wire encoding of a Quad
type WireQuad struct {
	Subject   WireTerm `json:"subject"`
	Predicate WireTerm `json:"predicate"`
	Object    WireTerm `json:"object"`
	Graph     WireTerm `json:"graph"`
}

type wireKind struct {
	Kind string `json:"kind"`
}

type wireNode struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type wireLiteral struct {
	Kind     string    `json:"kind"`
	Value    string    `json:"value"`
	Language string    `json:"language"`
	Datatype *WireTerm `json:"datatype"`
}

// MarshalJSON emits exactly the fields of the term's kind
func (w WireTerm) MarshalJSON() ([]byte, error) {
	switch w.Kind {
	case DefaultGraphKind.String():
		return json.Marshal(wireKind{w.Kind})
	case LiteralKind.String():
		return json.Marshal(wireLiteral{w.Kind, w.Value, w.Language, w.Datatype})
	default:
		return json.Marshal(wireNode{w.Kind, w.Value})
	}
}

// UnmarshalJSON accepts any of the three shapes
func (w *WireTerm) UnmarshalJSON(data []byte) error {
	var v wireLiteral
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	w.Kind, w.Value, w.Language, w.Datatype = v.Kind, v.Value, v.Language, v.Datatype
	return nil
}

// ToWire encodes a term; nil encodes as the default graph
func ToWire(term Term) WireTerm {
	switch t := term.(type) {
	case Literal:
		datatype := t.normal().Datatype
		return WireTerm{
			Kind:     LiteralKind.String(),
			Value:    t.Lexical,
			Language: t.Language,
			Datatype: &WireTerm{Kind: ResourceKind.String(), Value: datatype},
		}
	case Resource, BlankNode, Variable:
		return WireTerm{Kind: t.Kind().String(), Value: t.Value()}
	default:
		return WireTerm{Kind: DefaultGraphKind.String()}
	}
}

// FromWire decodes a wire term. A literal with a language tag becomes a
// language-tagged literal; one without a datatype becomes an xsd:string
// literal; otherwise it is typed.
func FromWire(w WireTerm) (Term, error) {
	kind, ok := ParseKind(w.Kind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Reason: "unknown term kind " + w.Kind}
	}

	switch kind {
	case ResourceKind:
		return NewResource(w.Value), nil
	case BlankNodeKind:
		return NewBlankNode(w.Value), nil
	case VariableKind:
		return NewVariable(w.Value), nil
	case DefaultGraphKind:
		return Default, nil
	case LiteralKind:
		if w.Language != "" {
			return NewLangLiteral(w.Value, w.Language), nil
		} else if w.Datatype == nil {
			return NewLiteral(w.Value), nil
		}
		return NewTypedLiteral(w.Value, w.Datatype.Value), nil
	}

	return nil, &ValidationError{Field: "kind", Reason: "unknown term kind " + w.Kind}
}

// ToWireTerms encodes a slice of terms
func ToWireTerms(terms []Term) []WireTerm {
	result := make([]WireTerm, len(terms))
	for i, term := range terms {
		result[i] = ToWire(term)
	}
	return result
}

// FromWireTerms decodes a slice of wire terms
func FromWireTerms(terms []WireTerm) ([]Term, error) {
	result := make([]Term, len(terms))
	for i, w := range terms {
		term, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		result[i] = term
	}
	return result, nil
}

// UnmarshalTerm decodes a single wire term from raw JSON
func UnmarshalTerm(data []byte) (Term, error) {
	var w WireTerm
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return FromWire(w)
}

// UnmarshalTerms decodes a JSON array of wire terms
func UnmarshalTerms(data []byte) ([]Term, error) {
	var terms []WireTerm
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, err
	}
	return FromWireTerms(terms)
}

// QuadToWire encodes a quad
func QuadToWire(q Quad) WireQuad {
	return WireQuad{ToWire(q.Subject), ToWire(q.Predicate), ToWire(q.Object), ToWire(q.Graph)}
}

// QuadsToWire encodes a slice of quads
func QuadsToWire(quads []Quad) []WireQuad {
	result := make([]WireQuad, len(quads))
	for i, q := range quads {
		result[i] = QuadToWire(q)
	}
	return result
}

// QuadFromWire decodes and validates a quad
func QuadFromWire(w WireQuad) (Quad, error) {
	var terms [4]Term
	for i, t := range [4]WireTerm{w.Subject, w.Predicate, w.Object, w.Graph} {
		term, err := FromWire(t)
		if err != nil {
			return Quad{}, err
		}
		terms[i] = term
	}
	return NewQuad(terms[0], terms[1], terms[2], terms[3])
}

// QuadsFromWire decodes a slice of wire quads
func QuadsFromWire(quads []WireQuad) ([]Quad, error) {
	result := make([]Quad, len(quads))
	for i, w := range quads {
		q, err := QuadFromWire(w)
		if err != nil {
			return nil, err
		}
		result[i] = q
	}
	return result, nil
}
