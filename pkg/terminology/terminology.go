// Package terminology encodes and decodes the terminology entries attached to
// segments, and decides when two entries describe the same structure.
//
// An entry is persisted as seven tilde-separated items, where code triples are
// caret-joined:
//
//	contextName~category~type~typeModifier~anatomicContextName~anatomicRegion~anatomicRegionModifier
//
// For example:
//
//	Segmentation category and type - 3D Slicer General Anatomy list~SCT^123037004^Anatomical Structure~SCT^113197003^Rib~^^~Anatomic codes - DICOM master list~^^~^^
package terminology

import (
	"strings"

	"slicerio/pkg/segerr"
)

const (
	itemSeparator = "~"
	codeSeparator = "^"
	itemCount     = 7
)

// Code is a coded concept from an external coding scheme.
type Code struct {
	// CodingScheme is the scheme designator, such as "SCT".
	CodingScheme string `json:"codingScheme" yaml:"codingScheme"`

	// CodeValue is the code within the scheme.
	CodeValue string `json:"codeValue" yaml:"codeValue"`

	// CodeMeaning is human readable text. It is ignored when matching.
	CodeMeaning string `json:"codeMeaning" yaml:"codeMeaning"`
}

// IsEmpty reports whether all three components are empty.
func (c Code) IsEmpty() bool {
	return c.CodingScheme == "" && c.CodeValue == "" && c.CodeMeaning == ""
}

// Matches compares scheme and value.
func (c Code) Matches(other Code) bool {
	return c.CodingScheme == other.CodingScheme && c.CodeValue == other.CodeValue
}

func (c Code) String() string {
	return strings.Join([]string{c.CodingScheme, c.CodeValue, c.CodeMeaning}, codeSeparator)
}

// Entry classifies a segment. Category and Type are required; the pointer
// fields are nil when absent.
type Entry struct {
	ContextName string `json:"contextName,omitempty" yaml:"contextName,omitempty"`

	Category Code `json:"category" yaml:"category"`
	Type     Code `json:"type" yaml:"type"`

	TypeModifier *Code `json:"typeModifier,omitempty" yaml:"typeModifier,omitempty"`

	// AnatomicContextName is empty when absent.
	AnatomicContextName string `json:"anatomicContextName,omitempty" yaml:"anatomicContextName,omitempty"`

	AnatomicRegion *Code `json:"anatomicRegion,omitempty" yaml:"anatomicRegion,omitempty"`

	// AnatomicRegionModifier may only be set together with AnatomicRegion.
	AnatomicRegionModifier *Code `json:"anatomicRegionModifier,omitempty" yaml:"anatomicRegionModifier,omitempty"`
}

// Validate checks the structural invariants of e.
func (e *Entry) Validate() error {
	if e.AnatomicRegionModifier != nil && e.AnatomicRegion == nil {
		return segerr.Formatf("TerminologyEntry", "anatomic region modifier requires an anatomic region")
	}
	return nil
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.TypeModifier = cloneCode(e.TypeModifier)
	c.AnatomicRegion = cloneCode(e.AnatomicRegion)
	c.AnatomicRegionModifier = cloneCode(e.AnatomicRegionModifier)
	return &c
}

func cloneCode(c *Code) *Code {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

// Decode parses a terminology string.
func Decode(text string) (*Entry, error) {
	items := strings.Split(text, itemSeparator)
	if len(items) < itemCount {
		return nil, segerr.Formatf("TerminologyEntry", "expected %d items separated by %q, got %d", itemCount, itemSeparator, len(items))
	}

	e := &Entry{ContextName: items[0]}

	var err error
	if e.Category, err = parseCode(items[1], "category"); err != nil {
		return nil, err
	}
	if e.Type, err = parseCode(items[2], "type"); err != nil {
		return nil, err
	}
	if e.TypeModifier, err = parseOptionalCode(items[3], "typeModifier"); err != nil {
		return nil, err
	}
	e.AnatomicContextName = items[4]
	if e.AnatomicRegion, err = parseOptionalCode(items[5], "anatomicRegion"); err != nil {
		return nil, err
	}
	if e.AnatomicRegion != nil {
		if e.AnatomicRegionModifier, err = parseOptionalCode(items[6], "anatomicRegionModifier"); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Encode serializes e. Absent fields are written as empty items so the
// result always has seven items.
func Encode(e *Entry) string {
	items := make([]string, 0, itemCount)
	items = append(items,
		e.ContextName,
		e.Category.String(),
		e.Type.String(),
		optionalCodeString(e.TypeModifier),
		e.AnatomicContextName,
		optionalCodeString(e.AnatomicRegion),
		optionalCodeString(e.AnatomicRegionModifier),
	)
	return strings.Join(items, itemSeparator)
}

func parseCode(text, name string) (Code, error) {
	parts := strings.SplitN(text, codeSeparator, 3)
	if len(parts) != 3 {
		return Code{}, segerr.Formatf("TerminologyEntry", "%s must have 3 components separated by %q: %q", name, codeSeparator, text)
	}
	return Code{CodingScheme: parts[0], CodeValue: parts[1], CodeMeaning: parts[2]}, nil
}

func parseOptionalCode(text, name string) (*Code, error) {
	c, err := parseCode(text, name)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, nil
	}
	return &c, nil
}

func optionalCodeString(c *Code) string {
	if c == nil {
		return Code{}.String()
	}
	return c.String()
}
