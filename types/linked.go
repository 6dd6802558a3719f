package types

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	vocab "github.com/underlay/styx-client/vocab"
)

// LinkedData is a JSON-LD value: one of ID, ValueObject, String,
// Boolean, or Number.
type LinkedData interface {
	linkedData()
}

// ID is a JSON-LD node reference {"@id": ...}. It is also the key type
// of linked-data query cursors, where it carries an external id.
type ID struct {
	ID string `json:"@id"`
}

// ValueObject is an expanded JSON-LD literal
type ValueObject struct {
	Value    string `json:"@value"`
	Type     string `json:"@type,omitempty"`
	Language string `json:"@language,omitempty"`
}

// String is a native JSON string (an xsd:string literal)
type String string

// Boolean is a native JSON boolean (an xsd:boolean literal)
type Boolean bool

// Number is a native JSON number kept in its lexical form
type Number string

func (ID) linkedData()          {}
func (ValueObject) linkedData() {}
func (String) linkedData()      {}
func (Boolean) linkedData()     {}
func (Number) linkedData()      {}

// MarshalJSON writes the number verbatim after checking it is valid JSON
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(n))
}

// Term returns the term named by the external id
func (id ID) Term() Term { return FromExternalKey(id.ID) }

// ToLinkedData converts a resource, blank node or literal into its
// JSON-LD form, using native shorthand for xsd:string, xsd:boolean,
// xsd:integer and xsd:double literals. Variables and the default
// graph have no linked-data form.
func ToLinkedData(term Term) (LinkedData, error) {
	switch t := term.(type) {
	case Resource:
		return ID{t.ID}, nil
	case BlankNode:
		return ID{vocab.BlankNodePrefix + t.Label}, nil
	case Literal:
		return literalToLinkedData(t), nil
	case nil:
		return nil, &ValidationError{Reason: "missing term"}
	}
	return nil, &ValidationError{Reason: term.Kind().String() + " has no linked-data form"}
}

func literalToLinkedData(l Literal) LinkedData {
	if l.Language != "" {
		return ValueObject{Value: l.Lexical, Language: l.Language}
	}

	switch l.Datatype {
	case "", vocab.XSDString:
		return String(l.Lexical)
	case vocab.XSDBoolean:
		if l.Lexical == "true" || l.Lexical == "false" {
			return Boolean(l.Lexical == "true")
		}
	case vocab.XSDInteger:
		i, ok := new(big.Int).SetString(l.Lexical, 10)
		if ok && i.String() == l.Lexical {
			return Number(l.Lexical)
		}
	case vocab.XSDDouble:
		f, err := strconv.ParseFloat(l.Lexical, 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && formatDouble(f) == l.Lexical {
			return Number(l.Lexical)
		}
	}

	// non-canonical lexical forms keep their exact spelling
	return ValueObject{Value: l.Lexical, Type: l.Datatype}
}

func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FromLinkedData is the inverse of ToLinkedData. Numbers with a decimal
// point or an exponent become xsd:double literals, other numbers
// xsd:integer. In value objects @language takes precedence and @type
// is the datatype IRI.
func FromLinkedData(value LinkedData) (Term, error) {
	switch v := value.(type) {
	case String:
		return NewLiteral(string(v)), nil
	case Boolean:
		return NewTypedLiteral(strconv.FormatBool(bool(v)), vocab.XSDBoolean), nil
	case Number:
		if strings.ContainsAny(string(v), ".eE") {
			return NewTypedLiteral(string(v), vocab.XSDDouble), nil
		}
		return NewTypedLiteral(string(v), vocab.XSDInteger), nil
	case ValueObject:
		if v.Language != "" {
			return NewLangLiteral(v.Value, v.Language), nil
		}
		return NewTypedLiteral(v.Value, v.Type), nil
	case ID:
		if strings.HasPrefix(v.ID, vocab.BlankNodePrefix) {
			return NewBlankNode(v.ID[len(vocab.BlankNodePrefix):]), nil
		}
		return NewResource(v.ID), nil
	}
	return nil, &ValidationError{Reason: "unsupported linked-data value"}
}

// UnmarshalLinkedData decodes one JSON-LD value
func UnmarshalLinkedData(data []byte) (LinkedData, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return parseLinkedData(value)
}

func parseLinkedData(value interface{}) (LinkedData, error) {
	switch v := value.(type) {
	case string:
		return String(v), nil
	case bool:
		return Boolean(v), nil
	case json.Number:
		return Number(v), nil
	case map[string]interface{}:
		if raw, has := v["@value"]; has {
			lexical, err := lexicalForm(raw)
			if err != nil {
				return nil, err
			}
			o := ValueObject{Value: lexical}
			o.Type, _ = v["@type"].(string)
			o.Language, _ = v["@language"].(string)
			return o, nil
		} else if id, is := v["@id"].(string); is {
			return ID{id}, nil
		}
		return nil, &ValidationError{Field: "linked data", Reason: "object has neither @id nor @value"}
	}
	return nil, &ValidationError{Field: "linked data", Reason: "unsupported JSON value"}
}

func lexicalForm(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", &ValidationError{Field: "@value", Reason: "must be a string, number or boolean"}
}
