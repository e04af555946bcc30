package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"coursebook/internal/contract"
)

// Kind says what a resource identifier addresses
type Kind int

const (
	Unmatched Kind = iota
	Collection
	Item
)

func (k Kind) String() string {
	switch k {
	case Collection:
		return "collection"
	case Item:
		return "item"
	default:
		return "unmatched"
	}
}

// Match is the result of resolving a resource identifier
type Match struct {
	Kind Kind
	// ID is set for Item matches
	ID int64
}

// URI returns the canonical identifier of the match. Every spelling that
// resolves to the same resource yields the same string.
func (m Match) URI() string {
	switch m.Kind {
	case Collection:
		return contract.CollectionURI
	case Item:
		return contract.ItemURI(m.ID)
	default:
		return ""
	}
}

// Resolve classifies uri as the course collection or a single course.
// Empty path segments are ignored, so "courses/" resolves like "courses".
// The item id must be a non-negative decimal that fits in int64.
func Resolve(uri string) (Match, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %s", ErrUnmatchedResource, uri)
	}
	if u.Scheme != contract.Scheme || u.Host != contract.Authority {
		return Match{}, fmt.Errorf("%w: %s", ErrUnmatchedResource, uri)
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	switch {
	case len(segments) == 1 && segments[0] == contract.PathCourses:
		return Match{Kind: Collection}, nil

	case len(segments) == 2 && segments[0] == contract.PathCourses && isDigits(segments[1]):
		id, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil {
			return Match{}, fmt.Errorf("%w: %s", ErrUnmatchedResource, uri)
		}
		return Match{Kind: Item, ID: id}, nil
	}

	return Match{}, fmt.Errorf("%w: %s", ErrUnmatchedResource, uri)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResourceType reports whether uri addresses the collection or an item
func ResourceType(uri string) (contract.ResourceType, error) {
	m, err := Resolve(uri)
	if err != nil {
		return "", err
	}
	if m.Kind == Item {
		return contract.TypeItem, nil
	}
	return contract.TypeCollection, nil
}

// MustResourceType is like ResourceType but panics on an unmatched
// identifier. Asking for the type of an unknown identifier is a caller bug.
func MustResourceType(uri string) contract.ResourceType {
	t, err := ResourceType(uri)
	if err != nil {
		panic(fmt.Sprintf("unknown uri %s: %v", uri, err))
	}
	return t
}
