package guide

import "fmt"

// Link raggruppa sezioni in una catena colorata per la navigazione sequenziale
type Link struct {
	ID         string   `json:"id"`
	Color      string   `json:"color"`
	SectionIDs []string `json:"sectionIds"`
}

// Palette contiene gli 8 colori ammessi per le catene
var Palette = []string{
	"#e74c3c",
	"#e67e22",
	"#f1c40f",
	"#2ecc71",
	"#1abc9c",
	"#3498db",
	"#9b59b6",
	"#e91e63",
}

// ValidColor verifica che il colore appartenga alla palette
func ValidColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// Clone restituisce una copia del collegamento
func (l *Link) Clone() *Link {
	c := *l
	c.SectionIDs = append([]string(nil), l.SectionIDs...)
	return &c
}

// Position restituisce l'indice della sezione nella catena, -1 se assente
func (l *Link) Position(sectionID string) int {
	return indexOf(l.SectionIDs, sectionID)
}

// LinkOf restituisce la catena che contiene la sezione
func LinkOf(doc *Document, sectionID string) (*Link, bool) {
	for _, l := range doc.Links {
		if l.Position(sectionID) >= 0 {
			return l, true
		}
	}
	return nil, false
}

// Link cerca un collegamento per ID
func (d *Document) Link(id string) (*Link, bool) {
	for _, l := range d.Links {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Choice è la risposta dell'operatore a un punto di decisione
type Choice int

const (
	Decline Choice = iota
	Confirm
)

// TransferQuestion chiede se spostare una sezione dalla sua catena attuale a quella nuova
type TransferQuestion struct {
	SectionID string
	Title     string
	FromLink  string
}

// Decider risponde ai punti di decisione. nil equivale a rifiutare sempre.
type Decider func(q TransferQuestion) Choice

// ConfirmAll accetta ogni trasferimento
func ConfirmAll(TransferQuestion) Choice { return Confirm }

// CreateLink crea una nuova catena con le sezioni indicate, nell'ordine dato.
// Le sezioni già collegate vengono spostate solo se decide conferma; un rifiuto
// annulla l'operazione senza modificare il documento.
func CreateLink(doc *Document, color string, sectionIDs []string, decide Decider, newID IDFunc) (*Link, error) {
	if len(sectionIDs) < 2 {
		return nil, ErrTooFewMembers
	}
	if !ValidColor(color) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColor, color)
	}

	seen := make(map[string]bool, len(sectionIDs))
	var transfers []TransferQuestion
	for _, id := range sectionIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		seen[id] = true

		s, ok := doc.Section(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
		}
		if old, linked := LinkOf(doc, id); linked {
			transfers = append(transfers, TransferQuestion{SectionID: id, Title: s.Title, FromLink: old.ID})
		}
	}

	// tutte le conferme vengono raccolte prima di toccare il documento
	for _, q := range transfers {
		if decide == nil || decide(q) != Confirm {
			return nil, fmt.Errorf("%w: %s", ErrTransferDeclined, q.SectionID)
		}
	}
	for _, q := range transfers {
		removeMember(doc, q.FromLink, q.SectionID)
	}

	link := &Link{
		ID:         uniqueID(newID, doc.takenIDs()),
		Color:      color,
		SectionIDs: append([]string(nil), sectionIDs...),
	}
	doc.Links = append(doc.Links, link)
	return link, nil
}

// DeleteLink rimuove la catena; le sezioni perdono l'appartenenza
func DeleteLink(doc *Document, linkID string) error {
	for i, l := range doc.Links {
		if l.ID == linkID {
			doc.Links = append(doc.Links[:i], doc.Links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLinkNotFound, linkID)
}

// Unlink toglie una sezione dalla sua catena, eliminando la catena se scende sotto 2 membri
func Unlink(doc *Document, sectionID string) bool {
	l, ok := LinkOf(doc, sectionID)
	if !ok {
		return false
	}
	removeMember(doc, l.ID, sectionID)
	return true
}

func removeMember(doc *Document, linkID, sectionID string) {
	l, ok := doc.Link(linkID)
	if !ok {
		return
	}
	if i := l.Position(sectionID); i >= 0 {
		l.SectionIDs = append(l.SectionIDs[:i], l.SectionIDs[i+1:]...)
	}
	if len(l.SectionIDs) < 2 {
		_ = DeleteLink(doc, linkID)
	}
}
