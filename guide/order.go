package guide

import (
	"fmt"
	"sort"
)

// ListByAct restituisce le sezioni di un atto ordinate per Order.
// A parità di Order vale la posizione nel documento.
func ListByAct(doc *Document, act Act) []*Section {
	out := make([]*Section, 0)
	for _, s := range doc.Sections {
		if s.Act == act {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// VisibleByAct restituisce le sezioni non nascoste di un atto, nell'ordine di visualizzazione
func VisibleByAct(doc *Document, act Act) []*Section {
	out := make([]*Section, 0)
	for _, s := range ListByAct(doc, act) {
		if !s.Hidden {
			out = append(out, s)
		}
	}
	return out
}

// Reorder assegna order = indice alle sezioni visualizzate nell'ordine indicato.
// ids deve essere un ordinamento completo delle sezioni dell'atto (elenco dell'editor)
// oppure delle sole visibili (board); le nascoste escluse e gli altri atti restano invariati.
func Reorder(doc *Document, act Act, ids []string) error {
	members := ListByAct(doc, act)
	byID := make(map[string]*Section, len(members))
	for _, s := range members {
		byID[s.ID] = s
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: %q non appartiene a %s", ErrReorderMismatch, id, act)
		}
		if seen[id] {
			return fmt.Errorf("%w: %q ripetuta", ErrReorderMismatch, id)
		}
		seen[id] = true
	}
	if !covers(seen, members) && !covers(seen, VisibleByAct(doc, act)) {
		return fmt.Errorf("%w: servono tutte le %d sezioni di %s o tutte le visibili", ErrReorderMismatch, len(members), act)
	}

	for i, id := range ids {
		byID[id].Order = i
	}
	return nil
}

// covers è vero se seen contiene esattamente le sezioni indicate
func covers(seen map[string]bool, sections []*Section) bool {
	if len(seen) != len(sections) {
		return false
	}
	for _, s := range sections {
		if !seen[s.ID] {
			return false
		}
	}
	return true
}

// MoveSection applica un drop nella lista dell'editor: se la sezione trascinata
// stava sopra il bersaglio finisce dopo di esso, altrimenti prima.
func MoveSection(doc *Document, act Act, draggedID, targetID string) error {
	if draggedID == targetID {
		return nil
	}
	ids := sectionIDs(ListByAct(doc, act))
	from, to := indexOf(ids, draggedID), indexOf(ids, targetID)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, draggedID)
	}
	if to < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, targetID)
	}

	ids = append(ids[:from], ids[from+1:]...)
	// dopo la rimozione il bersaglio scala di una posizione se era sotto
	if from < to {
		to--
		ids = insertAt(ids, to+1, draggedID)
	} else {
		ids = insertAt(ids, to, draggedID)
	}
	return Reorder(doc, act, ids)
}

// MoveToIndex sposta una sezione visibile nello slot indicato della board e rinumera
// le sezioni visibili dell'atto. Gli slot si riferiscono all'ordine senza la sezione
// spostata; index fuori range significa in coda.
func MoveToIndex(doc *Document, act Act, id string, index int) error {
	ids := sectionIDs(VisibleByAct(doc, act))
	from := indexOf(ids, id)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	ids = append(ids[:from], ids[from+1:]...)
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ids = insertAt(ids, index, id)
	return Reorder(doc, act, ids)
}

func sectionIDs(sections []*Section) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, i int, id string) []string {
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
