// Package board gestisce lo stato della board a schede di un atto: trascinamento,
// ridimensionamento, annotazioni a mano libera, sezioni nascoste e navigazione nelle catene.
package board

import (
	"errors"
	"fmt"
	"math"

	"guideboard/guide"
)

var (
	ErrNotDragging   = errors.New("nessuna scheda in trascinamento")
	ErrNotAnnotating = errors.New("nessuna annotazione attiva")
	ErrNotVisible    = errors.New("la sezione non è visibile in questo atto")
)

// Rect posizione e dimensioni di una scheda sullo schermo
type Rect struct {
	X, Y, W, H float64
}

// Center centro del rettangolo
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// DropSlot sceglie lo slot di inserimento per un drop libero: prima della scheda
// il cui centro è più vicino al puntatore, in coda se non ci sono altre schede.
// rects sono le schede rimanenti nell'ordine visualizzato.
func DropSlot(rects []Rect, x, y float64) int {
	best, bestDist := len(rects), math.Inf(1)
	for i, r := range rects {
		cx, cy := r.Center()
		if d := math.Hypot(x-cx, y-cy); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Card scheda visibile con le informazioni della sua catena
type Card struct {
	Section   *guide.Section
	LinkColor string // vuoto se la sezione non è in una catena
	ChainPos  int    // posizione nella catena, 0-based
	ChainLen  int
}

// HasPrev c'è un membro precedente nella catena
func (c Card) HasPrev() bool { return c.ChainLen > 0 && c.ChainPos > 0 }

// HasNext c'è un membro successivo nella catena
func (c Card) HasNext() bool { return c.ChainLen > 0 && c.ChainPos < c.ChainLen-1 }

// Chip sezione nascosta mostrata nella barra delle nascoste
type Chip struct {
	Section     *guide.Section
	LinkColor   string
	NextInChain bool // subito dopo l'ultimo membro visibile della catena
}

// Finished annotazione chiusa: il doodle da salvare per la sezione
type Finished struct {
	SectionID string
	Doodle    string
}

// State stato della board per un utente
type State struct {
	doc *guide.Document
	act guide.Act

	dragging   string
	annotating string
	pending    string
	dirty      bool
}

// New crea lo stato della board sull'atto indicato
func New(doc *guide.Document, act guide.Act) (*State, error) {
	if !act.Valid() {
		return nil, fmt.Errorf("%w: %q", guide.ErrUnknownAct, act)
	}
	doc.Normalize()
	return &State{doc: doc, act: act}, nil
}

// Document documento in memoria
func (s *State) Document() *guide.Document { return s.doc }

// Act atto visualizzato
func (s *State) Act() guide.Act { return s.act }

// Dirty ci sono modifiche non ancora salvate
func (s *State) Dirty() bool { return s.dirty }

// MarkSaved azzera il flag dopo un salvataggio riuscito
func (s *State) MarkSaved() { s.dirty = false }

// SetAct cambia atto. Un trascinamento in corso viene annullato.
func (s *State) SetAct(act guide.Act) error {
	if !act.Valid() {
		return fmt.Errorf("%w: %q", guide.ErrUnknownAct, act)
	}
	s.act = act
	s.dragging = ""
	return nil
}

// Cards schede visibili dell'atto nell'ordine di visualizzazione
func (s *State) Cards() []Card {
	visible := guide.VisibleByAct(s.doc, s.act)
	cards := make([]Card, 0, len(visible))
	for _, sec := range visible {
		card := Card{Section: sec}
		if link, ok := guide.LinkOf(s.doc, sec.ID); ok {
			card.LinkColor = link.Color
			card.ChainPos = link.Position(sec.ID)
			card.ChainLen = len(link.SectionIDs)
		}
		cards = append(cards, card)
	}
	return cards
}

// HiddenBar sezioni nascoste dell'atto
func (s *State) HiddenBar() []Chip {
	hidden := guide.HiddenByAct(s.doc, s.act)
	chips := make([]Chip, 0, len(hidden))
	for _, sec := range hidden {
		chip := Chip{Section: sec, NextInChain: guide.IsNextInChain(s.doc, sec.ID)}
		if link, ok := guide.LinkOf(s.doc, sec.ID); ok {
			chip.LinkColor = link.Color
		}
		chips = append(chips, chip)
	}
	return chips
}

// ============================================
// Trascinamento
// ============================================

// BeginDrag inizia a trascinare una scheda visibile
func (s *State) BeginDrag(sectionID string) error {
	if !s.isVisibleCard(sectionID) {
		return fmt.Errorf("%w: %s", ErrNotVisible, sectionID)
	}
	s.dragging = sectionID
	return nil
}

// Dragging ID della scheda trascinata, vuoto se nessuna
func (s *State) Dragging() string { return s.dragging }

// CancelDrag annulla il trascinamento senza modifiche
func (s *State) CancelDrag() { s.dragging = "" }

// Drop rilascia la scheda nello slot più vicino al puntatore. rects sono le
// altre schede visibili nell'ordine visualizzato.
func (s *State) Drop(rects []Rect, x, y float64) error {
	return s.DropAt(DropSlot(rects, x, y))
}

// DropAt rilascia la scheda nello slot indicato e rinumera le schede visibili
func (s *State) DropAt(slot int) error {
	if s.dragging == "" {
		return ErrNotDragging
	}
	id := s.dragging
	s.dragging = ""
	if err := guide.MoveToIndex(s.doc, s.act, id, slot); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// ============================================
// Dimensioni e visibilità
// ============================================

// Resize imposta le dimensioni di una scheda (minimo 200x100)
func (s *State) Resize(sectionID string, width, height float64) error {
	if err := guide.ResizeSection(s.doc, sectionID, width, height); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Hide nasconde una sezione
func (s *State) Hide(sectionID string) error {
	return s.setHidden(sectionID, true)
}

// Show riporta una sezione nascosta sulla board
func (s *State) Show(sectionID string) error {
	return s.setHidden(sectionID, false)
}

func (s *State) setHidden(sectionID string, hidden bool) error {
	if err := guide.SetHidden(s.doc, sectionID, hidden); err != nil {
		return err
	}
	if hidden && s.dragging == sectionID {
		s.dragging = ""
	}
	s.dirty = true
	return nil
}

// Navigate passa al membro adiacente della catena; false se non c'è
func (s *State) Navigate(sectionID string, dir guide.Direction) bool {
	if !guide.NavigateLink(s.doc, sectionID, dir) {
		return false
	}
	s.dirty = true
	return true
}

// ============================================
// Annotazioni
// ============================================

// BeginAnnotation attiva il disegno su una scheda. Se un'altra scheda era in
// disegno la sua annotazione viene chiusa e restituita per il salvataggio.
func (s *State) BeginAnnotation(sectionID string) (*Finished, error) {
	sec, ok := s.doc.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, sectionID)
	}
	if s.annotating == sectionID {
		return nil, nil
	}

	var finished *Finished
	if s.annotating != "" {
		f, err := s.EndAnnotation()
		if err != nil {
			return nil, err
		}
		finished = f
	}

	s.annotating = sectionID
	s.pending = ""
	if sec.Doodle != nil {
		s.pending = *sec.Doodle
	}
	return finished, nil
}

// Annotating ID della scheda in disegno, vuoto se nessuna
func (s *State) Annotating() string { return s.annotating }

// Draw aggiorna l'immagine della superficie di disegno attiva (data URI, vuoto per cancellare)
func (s *State) Draw(dataURI string) error {
	if s.annotating == "" {
		return ErrNotAnnotating
	}
	if dataURI != "" {
		if err := guide.ValidateDoodle(dataURI); err != nil {
			return err
		}
	}
	s.pending = dataURI
	return nil
}

// EndAnnotation salva il disegno nella sezione e chiude la superficie
func (s *State) EndAnnotation() (*Finished, error) {
	if s.annotating == "" {
		return nil, ErrNotAnnotating
	}
	id, doodle := s.annotating, s.pending
	if err := guide.SetDoodle(s.doc, id, doodle); err != nil {
		return nil, err
	}
	s.annotating, s.pending = "", ""
	s.dirty = true
	return &Finished{SectionID: id, Doodle: doodle}, nil
}

// DiscardAnnotation chiude la superficie senza salvare
func (s *State) DiscardAnnotation() {
	s.annotating, s.pending = "", ""
}

func (s *State) isVisibleCard(sectionID string) bool {
	for _, sec := range guide.VisibleByAct(s.doc, s.act) {
		if sec.ID == sectionID {
			return true
		}
	}
	return false
}
