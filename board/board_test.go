package board

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guideboard/guide"
)

func pngURI() string {
	raw := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

func boardDoc() *guide.Document {
	return &guide.Document{
		Sections: []*guide.Section{
			{ID: "a", Act: guide.Act1, Title: "Clearfell", Content: "<p>Vai a <b>nord</b> &amp; parla con Renly</p>", Order: 0},
			{ID: "h", Act: guide.Act1, Title: "Nascosta", Order: 1, Hidden: true},
			{ID: "b", Act: guide.Act1, Title: "Grelwood", Order: 2},
			{ID: "c", Act: guide.Act1, Title: "Red Vale", Order: 3},
			{ID: "x", Act: guide.Act2, Title: "Vastiri", Order: 0},
		},
		Links: []*guide.Link{{ID: "L1", Color: "#e74c3c", SectionIDs: []string{"a", "h"}}},
	}
}

func order(doc *guide.Document) map[string]int {
	out := map[string]int{}
	for _, s := range doc.Sections {
		out[s.ID] = s.Order
	}
	return out
}

func TestDropSlotNearestCenter(t *testing.T) {
	rects := []Rect{
		{X: 0, Y: 0, W: 100, H: 100},
		{X: 120, Y: 0, W: 100, H: 100},
		{X: 0, Y: 120, W: 100, H: 100},
	}
	assert.Equal(t, 0, DropSlot(rects, 10, 10))
	assert.Equal(t, 1, DropSlot(rects, 200, 40))
	assert.Equal(t, 2, DropSlot(rects, 60, 300))
	assert.Equal(t, 0, DropSlot(nil, 60, 300), "senza altre schede si accoda")
	t.Logf("✅ DropSlot sceglie il centro più vicino")
}

func TestDropRenumbersVisibleCards(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)

	require.NoError(t, s.BeginDrag("c"))
	assert.Equal(t, "c", s.Dragging())

	// le altre schede visibili: a, b
	rects := []Rect{{X: 0, Y: 0, W: 100, H: 100}, {X: 120, Y: 0, W: 100, H: 100}}
	require.NoError(t, s.Drop(rects, 5, 5))

	got := order(s.Document())
	assert.Equal(t, 0, got["c"])
	assert.Equal(t, 1, got["a"])
	assert.Equal(t, 2, got["b"])
	assert.Equal(t, 1, got["h"], "le nascoste non cambiano")
	assert.Equal(t, 0, got["x"], "gli altri atti non cambiano")
	assert.True(t, s.Dirty())
	assert.Empty(t, s.Dragging())

	assert.ErrorIs(t, s.DropAt(0), ErrNotDragging)
	assert.ErrorIs(t, s.BeginDrag("h"), ErrNotVisible)
	assert.ErrorIs(t, s.BeginDrag("x"), ErrNotVisible)
}

func TestCardsAndHiddenBar(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)

	cards := s.Cards()
	require.Len(t, cards, 3)
	assert.Equal(t, "a", cards[0].Section.ID)
	assert.Equal(t, "#e74c3c", cards[0].LinkColor)
	assert.True(t, cards[0].HasNext())
	assert.False(t, cards[0].HasPrev())
	assert.Empty(t, cards[1].LinkColor)

	chips := s.HiddenBar()
	require.Len(t, chips, 1)
	assert.Equal(t, "h", chips[0].Section.ID)
	assert.True(t, chips[0].NextInChain)

	require.True(t, s.Navigate("a", guide.Next))
	chips = s.HiddenBar()
	require.Len(t, chips, 1)
	assert.Equal(t, "a", chips[0].Section.ID)
	assert.False(t, chips[0].NextInChain)

	assert.False(t, s.Navigate("h", guide.Next), "h è l'ultimo della catena")
	assert.False(t, s.Navigate("b", guide.Next), "b non è in una catena")
}

func TestHideShowAndResize(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)

	require.NoError(t, s.BeginDrag("b"))
	require.NoError(t, s.Hide("b"))
	assert.Empty(t, s.Dragging(), "nascondere la scheda trascinata annulla il drag")
	assert.Len(t, s.Cards(), 2)

	require.NoError(t, s.Show("h"))
	assert.Len(t, s.Cards(), 3)

	require.NoError(t, s.Resize("a", 50, 500))
	sec, _ := s.Document().Section("a")
	assert.Equal(t, float64(guide.MinWidth), *sec.Width)
	assert.Equal(t, 500.0, *sec.Height)

	assert.ErrorIs(t, s.Hide("nope"), guide.ErrSectionNotFound)
}

func TestSingleActiveAnnotation(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Draw(pngURI()), ErrNotAnnotating)

	finished, err := s.BeginAnnotation("a")
	require.NoError(t, err)
	assert.Nil(t, finished)
	require.NoError(t, s.Draw(pngURI()))
	assert.ErrorIs(t, s.Draw("data:text/plain;base64,aGVsbG8="), guide.ErrInvalidDoodle)

	// aprire un'altra scheda salva e chiude la precedente
	finished, err = s.BeginAnnotation("b")
	require.NoError(t, err)
	require.NotNil(t, finished)
	assert.Equal(t, "a", finished.SectionID)
	assert.Equal(t, pngURI(), finished.Doodle)
	assert.Equal(t, "b", s.Annotating())

	a, _ := s.Document().Section("a")
	require.NotNil(t, a.Doodle)
	assert.Equal(t, pngURI(), *a.Doodle)

	finished, err = s.EndAnnotation()
	require.NoError(t, err)
	assert.Equal(t, "b", finished.SectionID)
	assert.Empty(t, finished.Doodle)
	assert.Empty(t, s.Annotating())

	// riaprendo "a" si riparte dal disegno salvato; cancellando si rimuove
	_, err = s.BeginAnnotation("a")
	require.NoError(t, err)
	require.NoError(t, s.Draw(""))
	_, err = s.EndAnnotation()
	require.NoError(t, err)
	assert.Nil(t, a.Doodle)

	_, err = s.EndAnnotation()
	assert.ErrorIs(t, err, ErrNotAnnotating)
	t.Logf("✅ Una sola annotazione attiva alla volta")
}

func TestSetAct(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)
	require.NoError(t, s.BeginDrag("a"))

	require.NoError(t, s.SetAct(guide.Act2))
	assert.Empty(t, s.Dragging())
	require.Len(t, s.Cards(), 1)
	assert.Equal(t, "x", s.Cards()[0].Section.ID)

	assert.ErrorIs(t, s.SetAct("act9"), guide.ErrUnknownAct)
	_, err = New(guide.NewDocument(), "act9")
	assert.ErrorIs(t, err, guide.ErrUnknownAct)
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p>Vai a <b>nord</b> &amp; parla</p><p>  secondo   paragrafo </p><script>alert(1)</script>")
	assert.Equal(t, "Vai a nord & parla\nsecondo paragrafo", got)
}

func TestRender(t *testing.T) {
	s, err := New(boardDoc(), guide.Act1)
	require.NoError(t, err)

	out := Render(s, RenderOptions{Theme: "light", Width: 80})
	assert.Contains(t, out, "Act 1")
	assert.Contains(t, out, "Clearfell")
	assert.Contains(t, out, "Grelwood")
	assert.Contains(t, out, "Nascoste:")
	assert.Contains(t, out, "▶ Nascosta")
	assert.NotContains(t, out, "<b>")

	require.NoError(t, s.SetAct(guide.Act3))
	assert.Contains(t, Render(s, RenderOptions{}), "Nessuna sezione")
}
