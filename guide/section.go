package guide

import (
	"fmt"
	"strings"
)

// Act rappresenta una partizione di primo livello della guida
type Act string

const (
	Act1       Act = "act1"
	Act2       Act = "act2"
	Act3       Act = "act3"
	Act4       Act = "act4"
	Interlude1 Act = "interlude1"
	Interlude2 Act = "interlude2"
	Interlude3 Act = "interlude3"
)

// Acts elenca gli atti nell'ordine di navigazione
var Acts = []Act{Act1, Act2, Act3, Interlude1, Act4, Interlude2, Interlude3}

var actNames = map[Act]string{
	Act1:       "Act 1",
	Act2:       "Act 2",
	Act3:       "Act 3",
	Act4:       "Act 4",
	Interlude1: "Interlude I",
	Interlude2: "Interlude II",
	Interlude3: "Interlude III",
}

// Name restituisce il nome leggibile dell'atto
func (a Act) Name() string {
	if name, ok := actNames[a]; ok {
		return name
	}
	return string(a)
}

// Valid verifica che l'atto sia uno di quelli conosciuti
func (a Act) Valid() bool {
	_, ok := actNames[a]
	return ok
}

// ParseAct converte una stringa in Act
func ParseAct(s string) (Act, error) {
	act := Act(strings.ToLower(strings.TrimSpace(s)))
	if !act.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAct, s)
	}
	return act, nil
}

// Section rappresenta un blocco di contenuto della guida
type Section struct {
	ID      string   `json:"id"`
	Act     Act      `json:"act"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Order   int      `json:"order"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	Doodle  *string  `json:"doodle,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`
}

// Document è l'intero contenuto di un utente
type Document struct {
	Sections []*Section `json:"sections"`
	Links    []*Link    `json:"links"`
}

// NewDocument crea un documento vuoto
func NewDocument() *Document {
	return &Document{
		Sections: []*Section{},
		Links:    []*Link{},
	}
}

// Normalize sostituisce le slice nil con slice vuote
func (d *Document) Normalize() {
	if d.Sections == nil {
		d.Sections = []*Section{}
	}
	if d.Links == nil {
		d.Links = []*Link{}
	}
}

// Section cerca una sezione per ID
func (d *Document) Section(id string) (*Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Clone restituisce una copia profonda del documento
func (d *Document) Clone() *Document {
	out := &Document{
		Sections: make([]*Section, 0, len(d.Sections)),
		Links:    make([]*Link, 0, len(d.Links)),
	}
	for _, s := range d.Sections {
		out.Sections = append(out.Sections, s.Clone())
	}
	for _, l := range d.Links {
		out.Links = append(out.Links, l.Clone())
	}
	return out
}

// Clone restituisce una copia della sezione
func (s *Section) Clone() *Section {
	c := *s
	if s.Width != nil {
		w := *s.Width
		c.Width = &w
	}
	if s.Height != nil {
		h := *s.Height
		c.Height = &h
	}
	if s.Doodle != nil {
		d := *s.Doodle
		c.Doodle = &d
	}
	return &c
}

// CountByAct conta le sezioni di un atto
func (d *Document) CountByAct(act Act) int {
	n := 0
	for _, s := range d.Sections {
		if s.Act == act {
			n++
		}
	}
	return n
}
