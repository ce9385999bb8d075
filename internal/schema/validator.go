// Package schema checks inbound JSON documents before they are decoded.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the JSON type a field must have.
type Kind int

const (
	String Kind = iota
	Number
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

func (k Kind) matches(r gjson.Result) bool {
	switch k {
	case String:
		return r.Type == gjson.String
	case Number:
		return r.Type == gjson.Number
	case Bool:
		return r.IsBool()
	default:
		return false
	}
}

// Field describes one member of a document.
type Field struct {
	Path     string
	Kind     Kind
	Required bool
}

var (
	ErrNotObject    = errors.New("schema: document is not a JSON object")
	ErrMissingField = errors.New("schema: missing required field")
	ErrFieldType    = errors.New("schema: field has wrong type")
)

// Validator checks documents against a fixed list of fields.
type Validator struct {
	name   string
	fields []Field
}

// New creates a validator for the named document kind.
func New(name string, fields ...Field) *Validator {
	return &Validator{name: name, fields: fields}
}

// BridgeEvent is the shape of a transcription event from the live source.
var BridgeEvent = New("bridge-event",
	Field{Path: "type", Kind: String, Required: true},
	Field{Path: "timestamp", Kind: Number, Required: true},
	Field{Path: "speaker", Kind: String, Required: true},
	Field{Path: "text", Kind: String, Required: true},
	Field{Path: "confidence", Kind: Number},
	Field{Path: "is_final", Kind: Bool},
)

// Validate returns every violation in raw, joined.
// Optional fields may be absent or null.
func (v *Validator) Validate(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%s: %w", v.name, ErrNotObject)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return fmt.Errorf("%s: %w", v.name, ErrNotObject)
	}

	var errs []error
	for _, f := range v.fields {
		r := doc.Get(f.Path)
		if !r.Exists() || r.Type == gjson.Null {
			if f.Required {
				errs = append(errs, fmt.Errorf("%s.%s: %w", v.name, f.Path, ErrMissingField))
			}
			continue
		}
		if !f.Kind.matches(r) {
			errs = append(errs, fmt.Errorf("%s.%s: want %s: %w", v.name, f.Path, f.Kind, ErrFieldType))
		}
	}
	return errors.Join(errs...)
}

// Fields lists the paths checked, in order.
func (v *Validator) Fields() string {
	paths := make([]string, len(v.fields))
	for i, f := range v.fields {
		paths[i] = f.Path
	}
	return strings.Join(paths, ",")
}
