package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	// il contenuto delle sezioni è HTML mostrato così com'è dal client web
	contentPolicy = newContentPolicy()
)

func newContentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span", "div")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// contentInput raccoglie il contenuto da --content o --file
type contentInput struct {
	text     string
	file     string
	markdown bool
}

func (c contentInput) given() bool {
	return c.text != "" || c.file != ""
}

// html restituisce il contenuto pronto per la sezione, convertendo il Markdown se richiesto
func (c contentInput) html() (string, error) {
	src := c.text
	if c.file != "" {
		raw, err := os.ReadFile(c.file)
		if err != nil {
			return "", fmt.Errorf("errore lettura %s: %w", c.file, err)
		}
		src = string(raw)
	}
	if c.markdown || strings.HasSuffix(strings.ToLower(c.file), ".md") {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(src), &buf); err != nil {
			return "", fmt.Errorf("markdown non valido: %w", err)
		}
		src = buf.String()
	}
	return strings.TrimSpace(contentPolicy.Sanitize(src)), nil
}

// imageDataURI legge un'immagine e la codifica come data URI per i disegni
func imageDataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("errore lettura %s: %w", path, err)
	}
	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s non è un'immagine (%s)", path, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
