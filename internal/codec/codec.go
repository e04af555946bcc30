// Package codec reads and writes course lists in interchange formats.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"coursebook/internal/domain"
)

// ErrUnsupportedFormat is returned by ForFormat for unknown format names
var ErrUnsupportedFormat = errors.New("unsupported format")

// Importer interface for importing courses from various formats
type Importer interface {
	Parse(r io.Reader) ([]domain.Course, error)
	Format() string
}

// Exporter interface for exporting courses to various formats
type Exporter interface {
	Export(courses []domain.Course, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Document is the top-level shape shared by every format
type Document struct {
	Courses []domain.Course `json:"courses" yaml:"courses"`
}

// Formats lists the supported format names
func Formats() []string {
	return []string{"json", "yaml"}
}

// ForFormat returns the codec for a format name. "yml" is accepted as yaml.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w %q, want one of %v", ErrUnsupportedFormat, format, Formats())
	}
}

func nonNil(courses []domain.Course) []domain.Course {
	if courses == nil {
		return []domain.Course{}
	}
	return courses
}
