package types

import (
	"strconv"
	"strings"
	"unicode"

	vocab "github.com/underlay/styx-client/vocab"
)

// ParseTerm reads a single term in N-Quads syntax, extended with
// ?name for variables
func ParseTerm(s string) (Term, error) {
	term, rest, err := scanTerm(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	} else if strings.TrimSpace(rest) != "" {
		return nil, &ValidationError{Field: "term", Reason: "unexpected trailing input " + strconv.Quote(rest)}
	}
	return term, nil
}

// ParseQuad reads one N-Quads line (with variables allowed in any
// position). The terminating "." is optional.
func ParseQuad(line string) (Quad, error) {
	rest := strings.TrimSpace(line)
	terms := make([]Term, 0, 4)
	for rest != "" && rest != "." {
		if len(terms) == 4 {
			return Quad{}, &ValidationError{Field: "quad", Reason: "too many terms"}
		}
		term, next, err := scanTerm(rest)
		if err != nil {
			return Quad{}, err
		}
		terms = append(terms, term)
		rest = strings.TrimSpace(next)
	}

	if len(terms) < 3 {
		return Quad{}, &ValidationError{Field: "quad", Reason: "expected at least three terms"}
	} else if len(terms) == 3 {
		terms = append(terms, Default)
	}

	return NewQuad(terms[0], terms[1], terms[2], terms[3])
}

func scanTerm(s string) (Term, string, error) {
	if s == "" {
		return nil, "", &ValidationError{Field: "term", Reason: "empty input"}
	}

	switch {
	case s[0] == '<':
		end := strings.IndexByte(s, '>')
		if end == -1 {
			return nil, "", &ValidationError{Field: "term", Reason: "unterminated IRI"}
		}
		return NewResource(s[1:end]), s[end+1:], nil
	case strings.HasPrefix(s, vocab.BlankNodePrefix):
		label, rest := scanName(s[len(vocab.BlankNodePrefix):])
		if label == "" {
			return nil, "", &ValidationError{Field: "term", Reason: "empty blank node label"}
		}
		return NewBlankNode(label), rest, nil
	case s[0] == '?':
		name, rest := scanName(s[1:])
		if name == "" {
			return nil, "", &ValidationError{Field: "term", Reason: "empty variable name"}
		}
		return NewVariable(name), rest, nil
	case s[0] == '"':
		return scanLiteral(s)
	}

	return nil, "", &ValidationError{Field: "term", Reason: "unexpected input " + strconv.Quote(s)}
}

func scanName(s string) (string, string) {
	end := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '<' || r == '"'
	})
	if end == -1 {
		end = len(s)
	}
	name := s[:end]
	// a trailing "." belongs to the statement, not the name
	for strings.HasSuffix(name, ".") {
		name = name[:len(name)-1]
	}
	return name, s[len(name):]
}

func scanLiteral(s string) (Term, string, error) {
	end := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
		} else if s[i] == '"' {
			end = i
			break
		}
	}

	if end == -1 {
		return nil, "", &ValidationError{Field: "term", Reason: "unterminated literal"}
	}

	lexical, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return nil, "", &ValidationError{Field: "term", Reason: "invalid literal escape"}
	}

	rest := s[end+1:]
	if strings.HasPrefix(rest, "@") {
		language, next := scanName(rest[1:])
		return NewLangLiteral(lexical, language), next, nil
	} else if strings.HasPrefix(rest, "^^") {
		datatype, next, err := scanTerm(rest[2:])
		if err != nil {
			return nil, "", err
		} else if datatype.Kind() != ResourceKind {
			return nil, "", &ValidationError{Field: "term", Reason: "literal datatype must be an IRI"}
		}
		return NewTypedLiteral(lexical, datatype.Value()), next, nil
	}

	return NewLiteral(lexical), rest, nil
}
