package guide

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Metadati del formato di backup
const (
	BundleVersion = 2
	BundleType    = "poe2-full-backup"
)

const exportDateLayout = "2006-01-02T15:04:05.000Z07:00"

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Bundle è il file di backup: il documento completo più i metadati
type Bundle struct {
	Version    int      `json:"version,omitempty"`
	Type       string   `json:"type,omitempty"`
	Username   string   `json:"username,omitempty"`
	ExportDate string   `json:"exportDate,omitempty"`
	Data       Document `json:"data"`
}

// Export serializza il documento di un utente in un bundle
func Export(doc *Document, username string, now time.Time) *Bundle {
	data := doc.Clone()
	return &Bundle{
		Version:    BundleVersion,
		Type:       BundleType,
		Username:   username,
		ExportDate: now.UTC().Format(exportDateLayout),
		Data:       *data,
	}
}

// bundleProbe accetta sia il formato attuale sia quelli legacy
// (senza version, senza links, o il documento nudo {sections, links})
type bundleProbe struct {
	Version    int    `json:"version"`
	Type       string `json:"type"`
	Username   string `json:"username"`
	ExportDate string `json:"exportDate"`
	Data       *struct {
		Sections []*Section `json:"sections"`
		Links    []*Link    `json:"links"`
	} `json:"data"`
	Sections []*Section `json:"sections"`
	Links    []*Link    `json:"links"`
}

// ParseBundle legge un bundle di backup. Un bundle senza sezioni è rifiutato.
func ParseBundle(raw []byte) (*Bundle, error) {
	var probe bundleProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	sections, links := probe.Sections, probe.Links
	if probe.Data != nil {
		sections, links = probe.Data.Sections, probe.Data.Links
	}
	if sections == nil {
		return nil, ErrMalformedBundle
	}
	for _, s := range sections {
		if s == nil || s.ID == "" {
			return nil, fmt.Errorf("%w: sezione senza id", ErrMalformedBundle)
		}
	}

	b := &Bundle{
		Version:    probe.Version,
		Type:       probe.Type,
		Username:   probe.Username,
		ExportDate: probe.ExportDate,
		Data:       Document{Sections: sections, Links: links},
	}
	b.Data.Normalize()
	return b, nil
}

// ValidateUsername verifica che il nome contenga solo [A-Za-z0-9_-]
func ValidateUsername(name string) error {
	if !usernameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, name)
	}
	return nil
}

// SanitizeUsername elimina i caratteri non ammessi, come fa il server alla creazione
func SanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NameChooser propone un nome sostitutivo per l'importazione. rejected è il nome
// scartato e reason il motivo (ErrUsernameTaken o ErrInvalidUsername); reason è nil
// se il bundle non indica un nome. ok=false significa che l'operatore ha rinunciato.
type NameChooser func(rejected string, reason error) (name string, ok bool)

// ImportName sceglie il nome dell'account per un'importazione come nuovo utente.
// Finché il nome manca, è occupato o non è valido lo chiede di nuovo a choose.
// Senza choose un nome occupato o mancante dà ErrImportCancelled.
func ImportName(b *Bundle, existing []string, choose NameChooser) (string, error) {
	used := make(map[string]bool, len(existing))
	for _, u := range existing {
		used[u] = true
	}

	name := strings.TrimSpace(b.Username)
	for {
		var reason error
		switch {
		case name == "":
		case used[name]:
			reason = ErrUsernameTaken
		default:
			if err := ValidateUsername(name); err != nil {
				reason = err
				break
			}
			return name, nil
		}

		if choose == nil {
			if errors.Is(reason, ErrInvalidUsername) {
				return "", reason
			}
			return "", ErrImportCancelled
		}
		next, ok := choose(name, reason)
		if !ok {
			return "", ErrImportCancelled
		}
		name = strings.TrimSpace(next)
	}
}

// NewUserDocument restituisce il documento da scrivere così com'è per un nuovo account
func NewUserDocument(b *Bundle) *Document {
	doc := b.Data.Clone()
	doc.Normalize()
	return doc
}

// MergeReport descrive l'esito di un'importazione in unione
type MergeReport struct {
	SectionsAdded int               `json:"sectionsAdded"`
	LinksAdded    int               `json:"linksAdded"`
	DroppedLinks  []string          `json:"droppedLinks,omitempty"`
	IDMap         map[string]string `json:"idMap"`
}

// Merge aggiunge il contenuto del bundle al documento senza toccare i dati esistenti.
// Ogni sezione importata riceve un nuovo ID; i collegamenti vengono rimappati e
// scartati se anche un solo membro non corrisponde a una sezione del documento.
func Merge(doc *Document, b *Bundle, newID IDFunc) *MergeReport {
	doc.Normalize()
	report := &MergeReport{IDMap: make(map[string]string, len(b.Data.Sections))}
	taken := doc.takenIDs()

	for _, in := range b.Data.Sections {
		s := in.Clone()
		s.ID = uniqueID(newID, taken)
		report.IDMap[in.ID] = s.ID
		doc.Sections = append(doc.Sections, s)
		report.SectionsAdded++
	}

	for _, in := range b.Data.Links {
		members := make([]string, 0, len(in.SectionIDs))
		for _, id := range in.SectionIDs {
			if mapped, ok := report.IDMap[id]; ok {
				members = append(members, mapped)
			} else {
				members = append(members, id)
			}
		}
		if !mergeable(doc, members) {
			report.DroppedLinks = append(report.DroppedLinks, in.ID)
			continue
		}
		doc.Links = append(doc.Links, &Link{
			ID:         uniqueID(newID, taken),
			Color:      in.Color,
			SectionIDs: members,
		})
		report.LinksAdded++
	}
	return report
}

// mergeable verifica che ogni membro esista e non appartenga già a una catena
func mergeable(doc *Document, members []string) bool {
	if len(members) < 2 {
		return false
	}
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if seen[id] {
			return false
		}
		seen[id] = true
		if _, ok := doc.Section(id); !ok {
			return false
		}
		if _, linked := LinkOf(doc, id); linked {
			return false
		}
	}
	return true
}
