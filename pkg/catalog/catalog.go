// Package catalog defines the catalog item model, the page envelope and the
// static tag → identifier range table used to filter the remote catalog.
package catalog

import (
	"fmt"
	"strings"
)

// UnknownTag labels items whose identifier falls outside every known range.
const UnknownTag = "unknown"

// DefaultImageBaseURL is the sprite location used for image URLs.
const DefaultImageBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/"

// Item is a single catalog entry. Values are treated as immutable.
type Item struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image"`
	Tags     []string `json:"tags"`
}

// NewItem builds an item and derives its image URL from the identifier.
func NewItem(id int, name, imageBase string, tags ...string) Item {
	return Item{
		ID:       id,
		Name:     name,
		ImageURL: ImageURL(imageBase, id),
		Tags:     append([]string(nil), tags...),
	}
}

// Page is one page of a (possibly filtered) listing.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	Total    int  `json:"total"`
	HasNext  bool `json:"hasNext"`
}

// EmptyPage returns a page without items, total or continuation.
func EmptyPage[T any](page, pageSize int) Page[T] {
	return Page[T]{
		Items:    []T{},
		Page:     page,
		PageSize: pageSize,
	}
}

// ImageURL returns base + id + ".png". An empty base uses DefaultImageBaseURL.
func ImageURL(base string, id int) string {
	if base == "" {
		base = DefaultImageBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s%d.png", base, id)
}
