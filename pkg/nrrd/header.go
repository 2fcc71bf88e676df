// Package nrrd reads and writes the subset of the NRRD0004 file format used by
// segmentation files: a single attached data payload in raw or gzip encoding
// holding an integer label array of 3 or 4 dimensions.
//
// Header values keep the types a generic NRRD reader produces:
//
//	dimension          int
//	sizes              []int
//	kinds              []string
//	space directions   [][]float64 (a "none" vector becomes a NaN row)
//	space origin       []float64
//	everything else    string
package nrrd

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"slicerio/pkg/segerr"
)

// Field is one header entry.
type Field struct {
	Key   string
	Value any
}

// Header is an ordered, string keyed mapping of header fields.
// The zero value is an empty header ready to use.
type Header struct {
	fields []Field
	index  map[string]int
}

// NewHeader returns a header holding fields in order. Later duplicates
// replace earlier values.
func NewHeader(fields ...Field) *Header {
	h := &Header{}
	for _, f := range fields {
		h.Set(f.Key, f.Value)
	}
	return h
}

// Set stores value under key, keeping the position of an existing key.
func (h *Header) Set(key string, value any) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	if i, ok := h.index[key]; ok {
		h.fields[i].Value = value
		return
	}
	h.index[key] = len(h.fields)
	h.fields = append(h.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (h *Header) Get(key string) (any, bool) {
	i, ok := h.index[key]
	if !ok {
		return nil, false
	}
	return h.fields[i].Value, true
}

// GetString returns the value under key when it is a string.
func (h *Header) GetString(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Delete removes key.
func (h *Header) Delete(key string) {
	i, ok := h.index[key]
	if !ok {
		return
	}
	h.fields = slices.Delete(h.fields, i, i+1)
	delete(h.index, key)
	for k, j := range h.index {
		if j > i {
			h.index[k] = j - 1
		}
	}
}

// Len returns the number of fields.
func (h *Header) Len() int { return len(h.fields) }

// Fields returns a copy of the fields in order.
func (h *Header) Fields() []Field { return slices.Clone(h.fields) }

// Keys returns the keys in order.
func (h *Header) Keys() []string {
	keys := make([]string, len(h.fields))
	for i, f := range h.fields {
		keys[i] = f.Key
	}
	return keys
}

// standardFields are the field identifiers defined by the NRRD0004 format.
// They are written as "key: value"; all other keys use "key:=value".
var standardFields = map[string]bool{
	"type": true, "dimension": true, "space": true, "space dimension": true,
	"sizes": true, "space directions": true, "kinds": true, "endian": true,
	"encoding": true, "min": true, "max": true, "oldmin": true, "old min": true,
	"oldmax": true, "old max": true, "content": true, "sample units": true,
	"spacings": true, "thicknesses": true, "axis mins": true, "axismins": true,
	"axis maxs": true, "axismaxs": true, "centerings": true, "centers": true,
	"labels": true, "units": true, "space units": true, "space origin": true,
	"measurement frame": true, "data file": true, "datafile": true,
	"line skip": true, "lineskip": true, "byte skip": true, "byteskip": true,
	"number": true, "block size": true, "blocksize": true,
}

// IsStandardField reports whether key is an NRRD field identifier.
func IsStandardField(key string) bool {
	return standardFields[key]
}

func parseStandardValue(key, raw string) (any, error) {
	switch key {
	case "dimension":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &segerr.FormatError{Field: key, Msg: "not an integer", Err: err}
		}
		return n, nil
	case "sizes":
		tokens := strings.Fields(raw)
		sizes := make([]int, len(tokens))
		for i, tok := range tokens {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return nil, &segerr.FormatError{Field: key, Msg: "not an integer list", Err: err}
			}
			sizes[i] = n
		}
		return sizes, nil
	case "kinds":
		return strings.Fields(raw), nil
	case "space directions":
		tokens := strings.Fields(raw)
		rows := make([][]float64, len(tokens))
		for i, tok := range tokens {
			if tok == "none" {
				rows[i] = []float64{math.NaN(), math.NaN(), math.NaN()}
				continue
			}
			vec, err := parseVector(key, tok)
			if err != nil {
				return nil, err
			}
			rows[i] = vec
		}
		return rows, nil
	case "space origin":
		return parseVector(key, strings.TrimSpace(raw))
	}
	return raw, nil
}

func parseVector(key, tok string) ([]float64, error) {
	if !strings.HasPrefix(tok, "(") || !strings.HasSuffix(tok, ")") {
		return nil, segerr.Formatf(key, "vector must be enclosed in parentheses: %q", tok)
	}
	parts := strings.Split(tok[1:len(tok)-1], ",")
	vec := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, &segerr.FormatError{Field: key, Msg: fmt.Sprintf("invalid vector %q", tok), Err: err}
		}
		vec[i] = f
	}
	return vec, nil
}

func formatValue(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, "\r\n") {
			return "", segerr.Formatf(key, "value must not contain line breaks")
		}
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, " "), nil
	case []string:
		return strings.Join(v, " "), nil
	case []float64:
		return formatVector(v), nil
	case [][]float64:
		parts := make([]string, len(v))
		for i, row := range v {
			if len(row) > 0 && math.IsNaN(row[0]) {
				parts[i] = "none"
				continue
			}
			parts[i] = formatVector(row)
		}
		return strings.Join(parts, " "), nil
	}
	return "", segerr.Formatf(key, "unsupported header value type %T", value)
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
