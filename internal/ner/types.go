// Package ner extracts named-entity spans (people, organizations, locations)
// from Russian text. The heavy model stack behind it is built lazily on
// first use and shared read-only for the rest of the process lifetime.
package ner

import (
	"encoding/json"
	"fmt"
)

// Type classifies a recognized entity span.
type Type int

const (
	PER Type = iota // person
	ORG             // organization
	LOC             // location
)

var typeNames = [...]string{
	PER: "PER",
	ORG: "ORG",
	LOC: "LOC",
}

var typeFromName = map[string]Type{
	"PER": PER,
	"ORG": ORG,
	"LOC": LOC,
}

// String returns the wire name of the entity type.
func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalJSON encodes the entity type as a JSON string (e.g. "PER").
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a JSON string (e.g. "PER") into a Type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	typ, ok := typeFromName[s]
	if !ok {
		return fmt.Errorf("unknown entity type: %q", s)
	}
	*t = typ
	return nil
}

// Span is one entity mention. Start/End are byte offsets into the text the
// extractor ran on; Text is the normalized surface form, which may differ
// from the raw source slice after vocabulary normalization.
type Span struct {
	Text  string `json:"text"`
	Type  Type   `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// String returns a debug representation, e.g. PER("Иван Петров")[0:21].
func (s Span) String() string {
	return fmt.Sprintf("%s(%q)[%d:%d]", s.Type, s.Text, s.Start, s.End)
}
