package codec

import (
	"errors"
	"fmt"
	"io"

	"coursebook/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports courses from a YAML document. An empty document is an
// empty list.
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Course, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nonNil(doc.Courses), nil
}

// Export writes courses as a YAML document
func (c *YAMLCodec) Export(courses []domain.Course, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(Document{Courses: nonNil(courses)}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
