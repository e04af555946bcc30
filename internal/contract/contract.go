// Package contract is the schema registry for coursebook.
//
// It is the single source of truth for the shape of addressable data: the
// authority, the resource identifiers for the course collection and for a
// single course, the table and column names, and the resource-type strings
// reported for each identifier. Everything here is constant data or a pure
// function of its inputs.
package contract

import (
	"strconv"
	"strings"
)

const (
	// Scheme prefixes every resource identifier
	Scheme = "content"
	// Authority names the provider that owns course data
	Authority = "org.coursebook.provider"
	// PathCourses is the path segment addressing the course collection
	PathCourses = "courses"
)

// BaseURI is the identifier of the provider itself
const BaseURI = Scheme + "://" + Authority

// CollectionURI addresses all courses
const CollectionURI = BaseURI + "/" + PathCourses

// Table and columns of the persisted schema
const (
	Table = "courses"

	ColumnID      = "_id"
	ColumnName    = "name"
	ColumnRoom    = "room"
	ColumnTeacher = "teacher"
	ColumnTime    = "time"
	ColumnDay     = "day"
)

// Columns lists every column in schema order
var Columns = []string{ColumnID, ColumnName, ColumnRoom, ColumnTeacher, ColumnTime, ColumnDay}

// WritableColumns lists the columns a caller may set on insert or update
var WritableColumns = []string{ColumnName, ColumnRoom, ColumnTeacher, ColumnTime, ColumnDay}

// IsColumn reports whether name is a column of the courses table
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsWritable reports whether name is a column callers may write
func IsWritable(name string) bool {
	return name != ColumnID && IsColumn(name)
}

// ItemURI addresses the course with the given id
func ItemURI(id int64) string {
	return WithAppendedID(CollectionURI, id)
}

// WithAppendedID appends id as a trailing path segment of uri
func WithAppendedID(uri string, id int64) string {
	return strings.TrimSuffix(uri, "/") + "/" + strconv.FormatInt(id, 10)
}

// ResourceType classifies a resolved identifier
type ResourceType string

const (
	TypeCollection ResourceType = "collection"
	TypeItem       ResourceType = "item"
)

// MIME type strings for the two resource types
const (
	ListType = "vnd.coursebook.dir/" + Authority + "/" + PathCourses
	ItemType = "vnd.coursebook.item/" + Authority + "/" + PathCourses
)

// MIMEType returns the MIME string for the resource type
func (t ResourceType) MIMEType() string {
	switch t {
	case TypeCollection:
		return ListType
	case TypeItem:
		return ItemType
	default:
		return ""
	}
}

func (t ResourceType) String() string {
	return string(t)
}
