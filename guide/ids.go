package guide

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// IDFunc genera un nuovo identificatore opaco
type IDFunc func() string

// NewID genera un ID ordinabile nel tempo per sezioni e collegamenti
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}

// uniqueID chiede nuovi ID finché non ne trova uno libero
func uniqueID(newID IDFunc, taken map[string]bool) string {
	if newID == nil {
		newID = NewID
	}
	for {
		id := newID()
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

func (d *Document) takenIDs() map[string]bool {
	taken := make(map[string]bool, len(d.Sections)+len(d.Links))
	for _, s := range d.Sections {
		taken[s.ID] = true
	}
	for _, l := range d.Links {
		taken[l.ID] = true
	}
	return taken
}
