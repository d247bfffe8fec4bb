// Package editor contiene la sessione dell'editor delle sezioni: la sezione aperta,
// le modifiche non salvate e i punti in cui serve una conferma dell'operatore.
package editor

import (
	"errors"
	"fmt"
	"html"

	"guideboard/guide"
)

var (
	ErrNoSection = errors.New("nessuna sezione aperta")
	ErrNotSaved  = errors.New("la sezione non è ancora stata salvata")
)

// Question tipo di conferma richiesta all'operatore
type Question int

const (
	DiscardChanges Question = iota // ci sono modifiche non salvate
	ConfirmDelete                  // eliminazione della sezione aperta
)

func (q Question) String() string {
	switch q {
	case DiscardChanges:
		return "Ci sono modifiche non salvate. Scartarle?"
	case ConfirmDelete:
		return "Eliminare questa sezione?"
	}
	return "Confermare?"
}

// Confirmer risponde alle domande dell'editor
type Confirmer func(Question) guide.Choice

// Always risponde sempre con la stessa scelta
func Always(c guide.Choice) Confirmer {
	return func(Question) guide.Choice { return c }
}

// Session stato dell'editor per un documento
type Session struct {
	doc     *guide.Document
	act     guide.Act
	draft   *guide.Section
	dirty   bool
	confirm Confirmer
	newID   guide.IDFunc
}

// NewSession apre l'editor sull'atto indicato. confirm nil rifiuta ogni domanda.
func NewSession(doc *guide.Document, act guide.Act, confirm Confirmer, newID guide.IDFunc) (*Session, error) {
	if !act.Valid() {
		return nil, fmt.Errorf("%w: %q", guide.ErrUnknownAct, act)
	}
	if confirm == nil {
		confirm = Always(guide.Decline)
	}
	doc.Normalize()
	return &Session{doc: doc, act: act, confirm: confirm, newID: newID}, nil
}

// Document documento in modifica
func (s *Session) Document() *guide.Document { return s.doc }

// Act atto selezionato
func (s *Session) Act() guide.Act { return s.act }

// Current bozza della sezione aperta, nil se nessuna
func (s *Session) Current() *guide.Section { return s.draft }

// Dirty la bozza ha modifiche non salvate
func (s *Session) Dirty() bool { return s.dirty }

// Sections elenco delle sezioni dell'atto, comprese le nascoste
func (s *Session) Sections() []*guide.Section {
	return guide.ListByAct(s.doc, s.act)
}

// canLeave chiede conferma se la bozza verrebbe persa
func (s *Session) canLeave() bool {
	return !s.dirty || s.confirm(DiscardChanges) == guide.Confirm
}

func (s *Session) close() {
	s.draft = nil
	s.dirty = false
}

// SetAct cambia atto e chiude la sezione aperta. false se l'operatore annulla.
func (s *Session) SetAct(act guide.Act) (bool, error) {
	if !act.Valid() {
		return false, fmt.Errorf("%w: %q", guide.ErrUnknownAct, act)
	}
	if !s.canLeave() {
		return false, nil
	}
	s.act = act
	s.close()
	return true, nil
}

// New apre una bozza vuota in coda all'atto corrente
func (s *Session) New() (bool, error) {
	if !s.canLeave() {
		return false, nil
	}
	sec, err := guide.NewSection(s.doc, s.act, s.newID)
	if err != nil {
		return false, err
	}
	s.draft = sec
	s.dirty = false
	return true, nil
}

// Load apre una sezione esistente
func (s *Session) Load(sectionID string) (bool, error) {
	sec, ok := s.doc.Section(sectionID)
	if !ok {
		return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, sectionID)
	}
	if !s.canLeave() {
		return false, nil
	}
	s.draft = sec.Clone()
	s.dirty = false
	return true, nil
}

// Edit aggiorna titolo e contenuto della bozza
func (s *Session) Edit(title, content string) error {
	if s.draft == nil {
		return ErrNoSection
	}
	if title != s.draft.Title || content != s.draft.Content {
		s.draft.Title, s.draft.Content = title, content
		s.dirty = true
	}
	return nil
}

// InsertImage aggiunge un'immagine caricata in fondo al contenuto
func (s *Session) InsertImage(url string) error {
	if s.draft == nil {
		return ErrNoSection
	}
	s.draft.Content += fmt.Sprintf(`<img src="%s">`, html.EscapeString(url))
	s.dirty = true
	return nil
}

// Save scrive la bozza nel documento. Il titolo è obbligatorio.
// Per una sezione già salvata cambiano solo titolo e contenuto: ordine, dimensioni,
// disegno e visibilità restano quelli attuali del documento.
func (s *Session) Save() (*guide.Section, error) {
	if s.draft == nil {
		return nil, ErrNoSection
	}
	saved := s.draft.Clone()
	if stored, ok := s.doc.Section(s.draft.ID); ok {
		saved = stored.Clone()
		saved.Title, saved.Content = s.draft.Title, s.draft.Content
	}
	if err := guide.SaveSection(s.doc, saved); err != nil {
		return nil, err
	}
	s.draft = saved.Clone()
	s.dirty = false
	return saved, nil
}

// Cancel chiude la bozza; false se l'operatore vuole tenere le modifiche
func (s *Session) Cancel() bool {
	if !s.canLeave() {
		return false
	}
	s.close()
	return true
}

// Delete elimina la sezione aperta dopo conferma
func (s *Session) Delete() (bool, error) {
	if s.draft == nil {
		return false, ErrNoSection
	}
	if s.confirm(ConfirmDelete) != guide.Confirm {
		return false, nil
	}
	if _, saved := s.doc.Section(s.draft.ID); saved {
		if err := guide.DeleteSection(s.doc, s.draft.ID); err != nil {
			return false, err
		}
	}
	s.close()
	return true, nil
}

// CopyTo copia la sezione aperta in un altro atto
func (s *Session) CopyTo(target guide.Act) (*guide.Section, error) {
	if s.draft == nil {
		return nil, ErrNoSection
	}
	if _, ok := s.doc.Section(s.draft.ID); !ok {
		return nil, ErrNotSaved
	}
	return guide.CopySection(s.doc, s.draft.ID, target, s.newID)
}

// CopySelected copia più sezioni nell'atto di destinazione, nell'ordine dato
func (s *Session) CopySelected(sectionIDs []string, target guide.Act) ([]*guide.Section, error) {
	return guide.CopySections(s.doc, sectionIDs, target, s.newID)
}

// Move applica il drop di una voce dell'elenco su un'altra
func (s *Session) Move(draggedID, targetID string) error {
	return guide.MoveSection(s.doc, s.act, draggedID, targetID)
}

// SaveLink crea una catena con le sezioni nell'ordine dato. decide risponde
// per le sezioni che appartengono già a un'altra catena.
func (s *Session) SaveLink(color string, sectionIDs []string, decide guide.Decider) (*guide.Link, error) {
	return guide.CreateLink(s.doc, color, sectionIDs, decide, s.newID)
}

// DeleteLink elimina una catena
func (s *Session) DeleteLink(linkID string) error {
	return guide.DeleteLink(s.doc, linkID)
}
