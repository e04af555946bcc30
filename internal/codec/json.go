package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"coursebook/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports courses from a JSON document
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Course, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nonNil(doc.Courses), nil
}

// Export writes courses as an indented JSON document
func (c *JSONCodec) Export(courses []domain.Course, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(Document{Courses: nonNil(courses)}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
