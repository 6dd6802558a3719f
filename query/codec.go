package query

import (
	"encoding/json"

	types "github.com/underlay/styx-client/types"
)

// A Codec converts a cursor's keys and values to and from the wire
type Codec[K comparable, V any] struct {
	// EncodeKey produces the wire form of a resume key for next
	EncodeKey func(key K) (types.WireTerm, error)
	// EncodeValue produces the wire form of a seek index value
	EncodeValue func(value V) (types.WireTerm, error)
	// DecodeValue decodes one bound value from a next or prov result
	DecodeValue func(raw json.RawMessage) (V, error)
}

// TermCodec is the codec of cursors keyed and valued by Terms
var TermCodec = Codec[types.Term, types.Term]{
	EncodeKey:   func(key types.Term) (types.WireTerm, error) { return types.ToWire(key), nil },
	EncodeValue: func(value types.Term) (types.WireTerm, error) { return types.ToWire(value), nil },
	DecodeValue: func(raw json.RawMessage) (types.Term, error) { return types.UnmarshalTerm(raw) },
}

// LinkedDataCodec is the codec of cursors keyed by external ids and
// valued by JSON-LD terms
var LinkedDataCodec = Codec[types.ID, types.LinkedData]{
	EncodeKey: func(key types.ID) (types.WireTerm, error) {
		return types.ToWire(key.Term()), nil
	},
	EncodeValue: func(value types.LinkedData) (types.WireTerm, error) {
		term, err := types.FromLinkedData(value)
		if err != nil {
			return types.WireTerm{}, err
		}
		return types.ToWire(term), nil
	},
	DecodeValue: func(raw json.RawMessage) (types.LinkedData, error) {
		term, err := types.UnmarshalTerm(raw)
		if err != nil {
			return nil, err
		}
		return types.ToLinkedData(term)
	},
}
