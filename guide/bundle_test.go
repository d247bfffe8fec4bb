package guide

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richDoc() *Document {
	w := 300.0
	doodle := "data:image/png;base64,AAAA"
	doc := &Document{
		Sections: []*Section{
			sec("a", Act1, 0),
			sec("b", Act1, 1),
			sec("c", Act2, 0),
			sec("d", Interlude1, 3),
		},
		Links: []*Link{
			{ID: "L1", Color: "#e74c3c", SectionIDs: []string{"a", "b"}},
			{ID: "L2", Color: "#3498db", SectionIDs: []string{"d", "c"}},
		},
	}
	doc.Sections[0].Width = &w
	doc.Sections[1].Hidden = true
	doc.Sections[2].Doodle = &doodle
	return doc
}

func TestExportBundleShape(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	raw, err := json.Marshal(Export(richDoc(), "exile", now))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.EqualValues(t, 2, generic["version"])
	assert.Equal(t, "poe2-full-backup", generic["type"])
	assert.Equal(t, "exile", generic["username"])
	assert.Equal(t, "2024-03-09T10:30:00.000Z", generic["exportDate"])
	data := generic["data"].(map[string]any)
	assert.Len(t, data["sections"], 4)
	assert.Len(t, data["links"], 2)
}

func TestExportNewUserImportRoundTrip(t *testing.T) {
	doc := richDoc()
	raw, err := json.Marshal(Export(doc, "exile", time.Now()))
	require.NoError(t, err)

	b, err := ParseBundle(raw)
	require.NoError(t, err)
	got := NewUserDocument(b)

	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip diverso (-want +got):\n%s", diff)
	}
}

func TestParseBundleLegacy(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		sections  int
		links     int
		username  string
		wantError bool
	}{
		{"attuale", `{"version":2,"type":"poe2-full-backup","username":"u","data":{"sections":[{"id":"a","act":"act1"}],"links":[]}}`, 1, 0, "u", false},
		{"senza version e senza links", `{"username":"old","data":{"sections":[{"id":"a","act":"act1"},{"id":"b","act":"act2"}]}}`, 2, 0, "old", false},
		{"documento nudo", `{"sections":[{"id":"a","act":"act1"},{"id":"b","act":"act1"}],"links":[{"id":"L","color":"#e74c3c","sectionIds":["a","b"]}]}`, 2, 1, "", false},
		{"sezioni vuote", `{"data":{"sections":[]}}`, 0, 0, "", false},
		{"senza sezioni", `{"version":2,"data":{"links":[]}}`, 0, 0, "", true},
		{"json rotto", `{"version":`, 0, 0, "", true},
		{"sezione senza id", `{"sections":[{"act":"act1"}]}`, 0, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBundle([]byte(tt.raw))
			if tt.wantError {
				assert.ErrorIs(t, err, ErrMalformedBundle)
				return
			}
			require.NoError(t, err)
			assert.Len(t, b.Data.Sections, tt.sections)
			assert.Len(t, b.Data.Links, tt.links)
			assert.NotNil(t, b.Data.Links)
			assert.Equal(t, tt.username, b.Username)
		})
	}
}

func TestMergeIsAdditiveAndIDSafe(t *testing.T) {
	target := &Document{
		Sections: []*Section{sec("a", Act1, 0), sec("x", Act1, 1)},
		Links:    []*Link{{ID: "T1", Color: Palette[0], SectionIDs: []string{"a", "x"}}},
	}
	original := target.Clone()
	incoming := Export(richDoc(), "other", time.Now())

	report := Merge(target, incoming, seqIDs("m"))

	assert.Len(t, target.Sections, len(original.Sections)+len(incoming.Data.Sections))
	assert.Equal(t, 4, report.SectionsAdded)
	assert.Equal(t, 2, report.LinksAdded)
	assert.Empty(t, report.DroppedLinks)

	for i, s := range original.Sections {
		assert.Equal(t, s, target.Sections[i], "dati esistenti invariati")
	}
	assert.Equal(t, original.Links[0], target.Links[0])

	seen := map[string]bool{}
	for _, s := range target.Sections {
		assert.False(t, seen[s.ID], "id duplicato %s", s.ID)
		seen[s.ID] = true
	}
	for _, l := range target.Links {
		for _, id := range l.SectionIDs {
			_, ok := target.Section(id)
			assert.True(t, ok, "membro %s non risolto", id)
		}
	}
	assert.NoError(t, ValidateDocument(target))

	// la sezione "a" importata non è la "a" esistente
	assert.NotEqual(t, "a", report.IDMap["a"])
	merged, _ := target.Section(report.IDMap["b"])
	assert.True(t, merged.Hidden, "l'importazione conserva la visibilità")
}

func TestMergeDropsUnresolvableLinks(t *testing.T) {
	target := &Document{Sections: []*Section{sec("keep", Act1, 0)}}
	b := &Bundle{Data: Document{
		Sections: []*Section{sec("p", Act1, 0), sec("q", Act1, 1)},
		Links: []*Link{
			{ID: "ok", Color: Palette[1], SectionIDs: []string{"p", "q"}},
			{ID: "ghost", Color: Palette[2], SectionIDs: []string{"p", "nowhere"}},
			{ID: "short", Color: Palette[3], SectionIDs: []string{"q"}},
		},
	}}

	report := Merge(target, b, seqIDs("m"))

	assert.Equal(t, 1, report.LinksAdded)
	assert.Equal(t, []string{"ghost", "short"}, report.DroppedLinks)
	require.Len(t, target.Links, 1)
	assert.Equal(t, []string{report.IDMap["p"], report.IDMap["q"]}, target.Links[0].SectionIDs)
	assert.Len(t, target.Sections, 3)
}

func TestMergeFallbackToOriginalID(t *testing.T) {
	// un membro non mappato che esiste già nel documento viene accettato
	target := &Document{Sections: []*Section{sec("keep", Act1, 0)}}
	b := &Bundle{Data: Document{
		Sections: []*Section{sec("p", Act1, 0)},
		Links:    []*Link{{ID: "mixed", Color: Palette[1], SectionIDs: []string{"p", "keep"}}},
	}}

	report := Merge(target, b, seqIDs("m"))
	require.Equal(t, 1, report.LinksAdded)
	assert.Equal(t, []string{report.IDMap["p"], "keep"}, target.Links[0].SectionIDs)
}

func TestImportName(t *testing.T) {
	existing := []string{"exile", "witch"}

	name, err := ImportName(&Bundle{Username: "ranger"}, existing, nil)
	require.NoError(t, err)
	assert.Equal(t, "ranger", name)

	var prompts []string
	var reasons []error
	answers := []string{"witch", "bad name!", " exile_2 "}
	choose := func(rejected string, reason error) (string, bool) {
		prompts = append(prompts, rejected)
		reasons = append(reasons, reason)
		next := answers[0]
		answers = answers[1:]
		return next, true
	}
	name, err = ImportName(&Bundle{Username: "exile"}, existing, choose)
	require.NoError(t, err)
	assert.Equal(t, "exile_2", name)
	assert.Equal(t, []string{"exile", "witch", "bad name!"}, prompts)
	require.Len(t, reasons, 3)
	assert.ErrorIs(t, reasons[0], ErrUsernameTaken)
	assert.ErrorIs(t, reasons[1], ErrUsernameTaken)
	assert.ErrorIs(t, reasons[2], ErrInvalidUsername, "un nome non valido viene richiesto di nuovo")

	_, err = ImportName(&Bundle{Username: "exile"}, existing, func(string, error) (string, bool) { return "", false })
	assert.ErrorIs(t, err, ErrImportCancelled)

	_, err = ImportName(&Bundle{Username: "bad name!"}, existing, nil)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = ImportName(&Bundle{}, existing, nil)
	assert.ErrorIs(t, err, ErrImportCancelled, "bundle senza nome richiede una scelta")

	var missing []error
	name, err = ImportName(&Bundle{}, existing, func(rejected string, reason error) (string, bool) {
		missing = append(missing, reason)
		return "ranger", true
	})
	require.NoError(t, err)
	assert.Equal(t, "ranger", name)
	assert.Equal(t, []error{nil}, missing)
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "Exile_01-x", SanitizeUsername("  Exile_01-x  "))
	assert.Equal(t, "bad", SanitizeUsername("b@a d!"))
	assert.Error(t, ValidateUsername(""))
	assert.NoError(t, ValidateUsername("ok-Name_9"))
}
