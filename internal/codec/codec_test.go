package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"coursebook/internal/domain"
)

var sample = []domain.Course{
	{ID: 1, Name: "Algebra", Room: "B12", Teacher: "Okafor", Time: "09:00", Day: "Mon"},
	{ID: 2, Name: "Biology"},
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", "json"},
		{"JSON", "json"},
		{"yaml", "yaml"},
		{"yml", "yaml"},
	}
	for _, tt := range tests {
		c, err := ForFormat(tt.format)
		if err != nil {
			t.Fatalf("ForFormat(%q) error: %v", tt.format, err)
		}
		if c.Format() != tt.want {
			t.Errorf("ForFormat(%q).Format() = %s, want %s", tt.format, c.Format(), tt.want)
		}
	}

	if _, err := ForFormat("csv"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ForFormat(csv) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := c.Export(sample, &buf); err != nil {
				t.Fatalf("Export() error: %v", err)
			}
			got, err := c.Parse(&buf)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if diff := deep.Equal(got, sample); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONCodec().Export(nil, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"courses": []`) {
		t.Errorf("Export(nil) = %s, want an empty courses array", buf.String())
	}
}

func TestYAMLParse(t *testing.T) {
	t.Run("hand written document", func(t *testing.T) {
		in := `
courses:
  - name: Chemistry
    room: Lab 2
    day: Tue
  - name: Drawing
`
		got, err := NewYAMLCodec().Parse(strings.NewReader(in))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		want := []domain.Course{
			{Name: "Chemistry", Room: "Lab 2", Day: "Tue"},
			{Name: "Drawing"},
		}
		if diff := deep.Equal(got, want); diff != nil {
			t.Error(diff)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		got, err := NewYAMLCodec().Parse(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Parse(\"\") = %v, want empty list", got)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := NewYAMLCodec().Parse(strings.NewReader("courses:\n  - title: x\n"))
		if err == nil {
			t.Error("Parse() expected error for unknown field")
		}
	})
}

func TestJSONParseInvalid(t *testing.T) {
	if _, err := NewJSONCodec().Parse(strings.NewReader("{")); err == nil {
		t.Error("Parse() expected error for truncated JSON")
	}
}
