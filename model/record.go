package model

import (
	"strings"
	"unicode/utf8"
)

// MaxMetadataValueLength is the longest field value, in runes, that
// Record.Metadata keeps.
const MaxMetadataValueLength = 100

// Field is one named column value of a record
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one row of a tabular source. Field order is the column order.
type Record struct {
	ID     string  `json:"id"`
	Fields []Field `json:"fields"`
}

// Text renders the record as "name: value" lines in field order
func (r Record) Text() string {
	var b strings.Builder
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Metadata returns the short single line fields as metadata. Longer text
// stays in Text only.
func (r Record) Metadata() Metadata {
	md := make(Metadata, len(r.Fields))
	for _, f := range r.Fields {
		if utf8.RuneCountInString(f.Value) > MaxMetadataValueLength || strings.ContainsAny(f.Value, "\r\n") {
			continue
		}
		md[f.Name] = f.Value
	}
	return md
}
