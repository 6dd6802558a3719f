package vocab

// XSD and RDF datatypes with a native linked-data shorthand
const (
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"

	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// BlankNodePrefix marks an external id that names a blank node
const BlankNodePrefix = "_:"

// VariablePrefix marks an external id that names a query variable
const VariablePrefix = "?:"

// MakeNamespace returns the per-query variable namespace for a uuid
func MakeNamespace(id string) string {
	return "urn:uuid:" + id + "?"
}
