package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"coursebook/internal/contract"
)

var validate = validator.New()

// Course is a single schedule entry
type Course struct {
	ID      int64  `json:"id" yaml:"id,omitempty"`
	Name    string `json:"name" yaml:"name" validate:"required"`
	Room    string `json:"room" yaml:"room,omitempty"`
	Teacher string `json:"teacher" yaml:"teacher,omitempty"`
	Time    string `json:"time" yaml:"time,omitempty"`
	Day     string `json:"day" yaml:"day,omitempty"`
}

// Validate checks the course invariants (a non-empty name)
func (c *Course) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("course requires a name: %w", err)
	}
	return nil
}

// Values returns the writable fields of the course as column values.
// The id is never included; it is assigned by the store.
func (c *Course) Values() Values {
	return Values{
		contract.ColumnName:    c.Name,
		contract.ColumnRoom:    c.Room,
		contract.ColumnTeacher: c.Teacher,
		contract.ColumnTime:    c.Time,
		contract.ColumnDay:     c.Day,
	}
}

// Field returns a pointer to the struct field backing column, or nil
func (c *Course) Field(column string) any {
	switch column {
	case contract.ColumnID:
		return &c.ID
	case contract.ColumnName:
		return &c.Name
	case contract.ColumnRoom:
		return &c.Room
	case contract.ColumnTeacher:
		return &c.Teacher
	case contract.ColumnTime:
		return &c.Time
	case contract.ColumnDay:
		return &c.Day
	default:
		return nil
	}
}

// Values maps column names to the text stored in them. It is the unit of
// data handed to insert and update.
type Values map[string]string

// Has reports whether key is present, regardless of its value
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// ValidateName enforces the name rule for a partial set of values.
// When required is false an absent name is accepted; a present name must
// never be empty.
func (v Values) ValidateName(required bool) error {
	name, ok := v[contract.ColumnName]
	if !ok && !required {
		return nil
	}
	if err := validate.Var(name, "required"); err != nil {
		return fmt.Errorf("course requires a name: %w", err)
	}
	return nil
}

// UnknownColumns returns the keys that are not writable columns
func (v Values) UnknownColumns() []string {
	var unknown []string
	for k := range v {
		if !contract.IsWritable(k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Filter is an optional SQL predicate with positional '?' arguments
type Filter struct {
	Where string
	Args  []any
}

// IsZero reports whether the filter selects every row
func (f Filter) IsZero() bool {
	return f.Where == ""
}

// ByID returns a filter matching exactly one id
func ByID(id int64) Filter {
	return Filter{Where: contract.ColumnID + " = ?", Args: []any{id}}
}
