package guide

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Dimensioni minime di una card ridimensionata
const (
	MinWidth  = 200
	MinHeight = 100
)

// NewSection crea una sezione vuota in coda all'atto. Non viene aggiunta al documento
// finché non viene salvata con SaveSection.
func NewSection(doc *Document, act Act, newID IDFunc) (*Section, error) {
	if !act.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAct, act)
	}
	return &Section{
		ID:    uniqueID(newID, doc.takenIDs()),
		Act:   act,
		Order: doc.CountByAct(act),
	}, nil
}

// SaveSection inserisce o aggiorna una sezione. Il titolo è obbligatorio.
func SaveSection(doc *Document, s *Section) error {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return ErrEmptyTitle
	}
	if !s.Act.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAct, s.Act)
	}
	for i, existing := range doc.Sections {
		if existing.ID == s.ID {
			doc.Sections[i] = s
			return nil
		}
	}
	doc.Sections = append(doc.Sections, s)
	return nil
}

// DeleteSection elimina la sezione e la toglie dalla sua catena
func DeleteSection(doc *Document, sectionID string) error {
	for i, s := range doc.Sections {
		if s.ID == sectionID {
			doc.Sections = append(doc.Sections[:i], doc.Sections[i+1:]...)
			Unlink(doc, sectionID)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
}

// ResizeSection salva le dimensioni di una card, rispettando i minimi
func ResizeSection(doc *Document, sectionID string, width, height float64) error {
	s, ok := doc.Section(sectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if width < MinWidth {
		width = MinWidth
	}
	if height < MinHeight {
		height = MinHeight
	}
	s.Width = &width
	s.Height = &height
	return nil
}

// SetDoodle salva il disegno a mano libera di una sezione; "" lo cancella
func SetDoodle(doc *Document, sectionID, dataURI string) error {
	s, ok := doc.Section(sectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if dataURI == "" {
		s.Doodle = nil
		return nil
	}
	if err := ValidateDoodle(dataURI); err != nil {
		return err
	}
	s.Doodle = &dataURI
	return nil
}

// ValidateDoodle verifica che il data URI contenga davvero un'immagine
func ValidateDoodle(dataURI string) error {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return ErrInvalidDoodle
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDoodle, err)
	}
	if !strings.HasPrefix(mimetype.Detect(raw).String(), "image/") {
		return ErrInvalidDoodle
	}
	return nil
}

// ValidateDocument verifica gli invarianti del documento prima del salvataggio
func ValidateDocument(doc *Document) error {
	ids := make(map[string]bool, len(doc.Sections))
	for _, s := range doc.Sections {
		if s == nil || s.ID == "" {
			return fmt.Errorf("%w: sezione senza id", ErrInvalidDocument)
		}
		if ids[s.ID] {
			return fmt.Errorf("%w: id duplicato %q", ErrInvalidDocument, s.ID)
		}
		if !s.Act.Valid() {
			return fmt.Errorf("%w: sezione %q: %w", ErrInvalidDocument, s.ID, ErrUnknownAct)
		}
		ids[s.ID] = true
	}

	linked := make(map[string]string)
	for _, l := range doc.Links {
		if l == nil || l.ID == "" {
			return fmt.Errorf("%w: collegamento senza id", ErrInvalidDocument)
		}
		if len(l.SectionIDs) < 2 {
			return fmt.Errorf("%w: collegamento %q: %w", ErrInvalidDocument, l.ID, ErrTooFewMembers)
		}
		for _, id := range l.SectionIDs {
			if !ids[id] {
				return fmt.Errorf("%w: collegamento %q: %w: %s", ErrInvalidDocument, l.ID, ErrSectionNotFound, id)
			}
			if other, dup := linked[id]; dup {
				return fmt.Errorf("%w: sezione %q in due catene (%s, %s)", ErrInvalidDocument, id, other, l.ID)
			}
			linked[id] = l.ID
		}
	}
	return nil
}
