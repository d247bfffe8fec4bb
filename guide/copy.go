package guide

import "fmt"

// CopySection copia una sezione in coda all'atto di destinazione.
// Non vengono copiati visibilità, disegno e appartenenza a catene.
func CopySection(doc *Document, sectionID string, target Act, newID IDFunc) (*Section, error) {
	copies, err := CopySections(doc, []string{sectionID}, target, newID)
	if err != nil {
		return nil, err
	}
	return copies[0], nil
}

// CopySections copia più sezioni nell'ordine dato, con order crescente
// a partire dal numero di sezioni già presenti nell'atto di destinazione.
func CopySections(doc *Document, sectionIDs []string, target Act, newID IDFunc) ([]*Section, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAct, target)
	}

	sources := make([]*Section, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		s, ok := doc.Section(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
		}
		sources = append(sources, s)
	}

	taken := doc.takenIDs()
	next := doc.CountByAct(target)
	copies := make([]*Section, 0, len(sources))
	for _, src := range sources {
		c := &Section{
			ID:      uniqueID(newID, taken),
			Act:     target,
			Title:   src.Title,
			Content: src.Content,
			Order:   next,
		}
		if src.Width != nil {
			w := *src.Width
			c.Width = &w
		}
		if src.Height != nil {
			h := *src.Height
			c.Height = &h
		}
		next++
		copies = append(copies, c)
	}
	doc.Sections = append(doc.Sections, copies...)
	return copies, nil
}
