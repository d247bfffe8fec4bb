package guide

import (
	"fmt"
	"strings"
)

// Direction indica il verso di navigazione in una catena
type Direction int

const (
	Next Direction = iota
	Prev
)

// ParseDirection converte "next"/"prev" in Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next", "avanti":
		return Next, nil
	case "prev", "previous", "indietro":
		return Prev, nil
	}
	return Next, fmt.Errorf("direzione non valida: %q", s)
}

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// NavigateLink nasconde la sezione corrente e mostra la vicina nella catena.
// Restituisce false, senza modificare nulla, se la sezione non è collegata
// o non ha un vicino in quella direzione.
func NavigateLink(doc *Document, sectionID string, dir Direction) bool {
	l, ok := LinkOf(doc, sectionID)
	if !ok {
		return false
	}
	i := l.Position(sectionID)
	j := i + 1
	if dir == Prev {
		j = i - 1
	}
	if j < 0 || j >= len(l.SectionIDs) {
		return false
	}

	current, ok := doc.Section(sectionID)
	if !ok {
		return false
	}
	neighbor, ok := doc.Section(l.SectionIDs[j])
	if !ok {
		return false
	}
	current.Hidden = true
	neighbor.Hidden = false
	return true
}

// SetHidden imposta la visibilità di una sezione
func SetHidden(doc *Document, sectionID string, hidden bool) error {
	s, ok := doc.Section(sectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	s.Hidden = hidden
	return nil
}

// HiddenByAct restituisce le sezioni nascoste di un atto (la "hidden bar")
func HiddenByAct(doc *Document, act Act) []*Section {
	out := make([]*Section, 0)
	for _, s := range ListByAct(doc, act) {
		if s.Hidden {
			out = append(out, s)
		}
	}
	return out
}

// IsNextInChain indica se una sezione nascosta è la successiva, nella sua catena,
// del primo predecessore visibile. È un'informazione solo di presentazione.
func IsNextInChain(doc *Document, sectionID string) bool {
	s, ok := doc.Section(sectionID)
	if !ok || !s.Hidden {
		return false
	}
	l, ok := LinkOf(doc, sectionID)
	if !ok {
		return false
	}
	i := l.Position(sectionID)
	for j := i - 1; j >= 0; j-- {
		prev, ok := doc.Section(l.SectionIDs[j])
		if ok && !prev.Hidden {
			return j == i-1
		}
	}
	return false
}
