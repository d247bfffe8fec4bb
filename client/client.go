// Package client parla con il server della guida via HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"guideboard/guide"
)

const defaultTimeout = 15 * time.Second

// ErrUsernameTaken il nome scelto per l'importazione è già usato
var ErrUsernameTaken = guide.ErrUsernameTaken

// APIError risposta di errore del server
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("errore server: status %d", e.Status)
	}
	return fmt.Sprintf("errore server (%d): %s", e.Status, e.Message)
}

// Client accede alle API del server
type Client struct {
	baseURL string
	http    *http.Client
}

// New crea un client verso baseURL (es. http://localhost:5000)
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient sostituisce il client HTTP usato (test, proxy, timeout diversi)
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// ImageUpload esito del caricamento di un'immagine
type ImageUpload struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ImportResult esito dell'importazione come nuovo utente
type ImportResult struct {
	Username string `json:"username"`
	Sections int    `json:"sections"`
	Links    int    `json:"links"`
}

// ListUsers elenca gli utenti
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	var out struct {
		Users []string `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, &out, nil, "api", "users"); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []string{}
	}
	return out.Users, nil
}

// CreateUser crea un utente e restituisce il nome ripulito dal server
func (c *Client) CreateUser(ctx context.Context, username string) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	body := map[string]string{"username": username}
	if err := c.doJSON(ctx, http.MethodPost, &out, body, "api", "users"); err != nil {
		return "", err
	}
	return out.Username, nil
}

// GetDocument carica il documento dell'utente. Un utente senza dati
// restituisce un documento vuoto.
func (c *Client) GetDocument(ctx context.Context, username string) (*guide.Document, error) {
	doc := guide.NewDocument()
	err := c.doJSON(ctx, http.MethodGet, doc, nil, "api", "users", username, "data")
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return guide.NewDocument(), nil
	}
	if err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

// PutDocument salva l'intero documento dell'utente
func (c *Client) PutDocument(ctx context.Context, username string, doc *guide.Document) error {
	doc.Normalize()
	return c.doJSON(ctx, http.MethodPut, nil, doc, "api", "users", username, "data")
}

// UploadImage carica un'immagine e restituisce l'URL da incorporare nel contenuto
func (c *Client) UploadImage(ctx context.Context, username, filename string, r io.Reader) (*ImageUpload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("errore lettura immagine: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.baseURL, "api", "users", username, "images")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	out := &ImageUpload{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImageURL restituisce l'URL assoluto di un'immagine caricata
func (c *Client) ImageURL(upload *ImageUpload) string {
	return c.baseURL + upload.URL
}

// Export scarica il backup completo dell'utente
func (c *Client) Export(ctx context.Context, username string) (*guide.Bundle, []byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, "api", "users", username, "export")
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, nil, err
	}
	b, err := guide.ParseBundle(raw)
	if err != nil {
		return nil, nil, err
	}
	return b, raw, nil
}

// ImportNewUser importa il backup come nuovo utente. username vuoto usa il
// nome contenuto nel bundle. Se il nome è occupato restituisce ErrUsernameTaken.
func (c *Client) ImportNewUser(ctx context.Context, raw []byte, username string) (*ImportResult, error) {
	body := map[string]any{"bundle": json.RawMessage(raw)}
	if username != "" {
		body["username"] = username
	}
	out := &ImportResult{}
	err := c.doJSON(ctx, http.MethodPost, out, body, "api", "import")
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "username_taken" {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, apiErr.Message)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportAsNewUser importa il backup come nuovo utente. Il nome di partenza è
// username, o quello del bundle se vuoto; se è occupato o non valido choose ne
// propone un altro finché non ne trova uno libero.
func (c *Client) ImportAsNewUser(ctx context.Context, raw []byte, username string, choose guide.NameChooser) (*ImportResult, error) {
	b, err := guide.ParseBundle(raw)
	if err != nil {
		return nil, err
	}
	if username != "" {
		b.Username = username
	}
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	name, err := guide.ImportName(b, users, choose)
	if err != nil {
		return nil, err
	}
	return c.ImportNewUser(ctx, raw, name)
}

// ImportMerge aggiunge il backup al documento dell'utente
func (c *Client) ImportMerge(ctx context.Context, username string, raw []byte) (*guide.MergeReport, error) {
	endpoint, err := url.JoinPath(c.baseURL, "api", "users", username, "import")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	report := &guide.MergeReport{}
	if err := c.do(req, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Client) doJSON(ctx context.Context, method string, out, in any, path ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server non raggiungibile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("risposta non valida: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
