package types

import (
	"strconv"
	"strings"

	vocab "github.com/underlay/styx-client/vocab"
)

// Kind enumerates the five term variants
type Kind uint8

const (
	_ Kind = iota
	// ResourceKind is the Kind of named resources
	ResourceKind
	// BlankNodeKind is the Kind of anonymous nodes
	BlankNodeKind
	// LiteralKind is the Kind of literals
	LiteralKind
	// VariableKind is the Kind of query variables
	VariableKind
	// DefaultGraphKind is the Kind of the default graph marker
	DefaultGraphKind
)

var kindNames = map[Kind]string{
	ResourceKind:     "Resource",
	BlankNodeKind:    "BlankNode",
	LiteralKind:      "Literal",
	VariableKind:     "Variable",
	DefaultGraphKind: "DefaultGraph",
}

var kindValues = map[string]Kind{
	"Resource":     ResourceKind,
	"BlankNode":    BlankNodeKind,
	"Literal":      LiteralKind,
	"Variable":     VariableKind,
	"DefaultGraph": DefaultGraphKind,
}

func (k Kind) String() string {
	if name, has := kindNames[k]; has {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind returns the Kind for its wire name
func ParseKind(name string) (Kind, bool) {
	k, has := kindValues[name]
	return k, has
}

// A Term is one of Resource, BlankNode, Literal, Variable, or DefaultGraph.
// The set is closed: the unexported method keeps other packages from
// adding variants, so a type switch over the five is exhaustive.
// All implementations are comparable and can be used as map keys.
type Term interface {
	Kind() Kind
	Value() string
	String() string
	Equal(term Term) bool
	term()
}

// Resource is a globally named entity
type Resource struct{ ID string }

// BlankNode is an anonymous entity scoped to a single exchange
type BlankNode struct{ Label string }

// Variable is a placeholder bound by query execution
type Variable struct{ Name string }

// DefaultGraph marks the unnamed graph context
type DefaultGraph struct{}

// Literal is a lexical value with a datatype or a language tag.
// An empty Datatype means xsd:string, or rdf:langString when Language
// is set; Equal and the encoders treat it that way. The constructors
// always fill it in.
type Literal struct {
	Lexical  string
	Language string
	Datatype string
}

var _ Term = Resource{}
var _ Term = BlankNode{}
var _ Term = Literal{}
var _ Term = Variable{}
var _ Term = DefaultGraph{}

// Default is the DefaultGraph value
var Default = DefaultGraph{}

// NewResource creates a named resource
func NewResource(id string) Resource { return Resource{ID: id} }

// NewBlankNode creates a blank node with the given label (no "_:" prefix)
func NewBlankNode(label string) BlankNode { return BlankNode{Label: label} }

// NewVariable creates a variable
func NewVariable(name string) Variable { return Variable{Name: name} }

// NewLiteral creates an xsd:string literal
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: lexical, Datatype: vocab.XSDString}
}

// NewTypedLiteral creates a literal with the given datatype IRI;
// an empty datatype means xsd:string.
func NewTypedLiteral(lexical string, datatype string) Literal {
	if datatype == "" {
		datatype = vocab.XSDString
	}
	return Literal{Lexical: lexical, Datatype: datatype}
}

// NewLangLiteral creates a language-tagged literal
func NewLangLiteral(lexical string, language string) Literal {
	if language == "" {
		return NewLiteral(lexical)
	}
	return Literal{Lexical: lexical, Language: language, Datatype: vocab.RDFLangString}
}

func (Resource) Kind() Kind     { return ResourceKind }
func (BlankNode) Kind() Kind    { return BlankNodeKind }
func (Literal) Kind() Kind      { return LiteralKind }
func (Variable) Kind() Kind     { return VariableKind }
func (DefaultGraph) Kind() Kind { return DefaultGraphKind }

func (r Resource) Value() string   { return r.ID }
func (b BlankNode) Value() string  { return b.Label }
func (l Literal) Value() string    { return l.Lexical }
func (v Variable) Value() string   { return v.Name }
func (DefaultGraph) Value() string { return "" }

func (Resource) term()     {}
func (BlankNode) term()    {}
func (Literal) term()      {}
func (Variable) term()     {}
func (DefaultGraph) term() {}

func (r Resource) Equal(term Term) bool   { t, is := term.(Resource); return is && t == r }
func (b BlankNode) Equal(term Term) bool  { t, is := term.(BlankNode); return is && t == b }
func (l Literal) Equal(term Term) bool    { t, is := term.(Literal); return is && t.normal() == l.normal() }
func (v Variable) Equal(term Term) bool   { t, is := term.(Variable); return is && t == v }
func (DefaultGraph) Equal(term Term) bool { _, is := term.(DefaultGraph); return is }

func (r Resource) String() string   { return "<" + r.ID + ">" }
func (b BlankNode) String() string  { return vocab.BlankNodePrefix + b.Label }
func (v Variable) String() string   { return "?" + v.Name }
func (DefaultGraph) String() string { return "" }

// normal fills in the datatype a zero Literal leaves empty
func (l Literal) normal() Literal {
	if l.Datatype != "" {
		return l
	} else if l.Language != "" {
		return NewLangLiteral(l.Lexical, l.Language)
	}
	return NewLiteral(l.Lexical)
}

// DatatypeResource returns the literal's datatype as a named resource
func (l Literal) DatatypeResource() Resource { return Resource{ID: l.Datatype} }

func (l Literal) String() string {
	s := strconv.Quote(l.Lexical)
	if l.Language != "" {
		return s + "@" + l.Language
	} else if l.Datatype == "" || l.Datatype == vocab.XSDString {
		return s
	}
	return s + "^^<" + l.Datatype + ">"
}

// IsGround reports whether a term can appear in stored data,
// i.e. it is not a variable.
func IsGround(term Term) bool {
	_, is := term.(Variable)
	return term != nil && !is
}

// Compare orders terms by kind and then by their N-Quads form.
// The order is total and is what the reference server enumerates
// results in.
func Compare(a, b Term) int {
	if a.Kind() != b.Kind() {
		if a.Kind() < b.Kind() {
			return -1
		}
		return 1
	}
	return strings.Compare(a.String(), b.String())
}
