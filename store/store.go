// Package store conserva gli utenti, il documento di ciascun utente e le immagini caricate.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"guideboard/guide"
)

var (
	ErrUserExists    = errors.New("utente già esistente")
	ErrUserNotFound  = errors.New("utente non trovato")
	ErrUserRequired  = errors.New("nome utente obbligatorio")
	ErrImageNotFound = errors.New("immagine non trovata")
	ErrInvalidImage  = errors.New("nome immagine non valido")
)

// Driver disponibili
const (
	DriverDisk   = "disk"
	DriverSQLite = "sqlite"
)

//go:generate mockgen -source=store.go -destination=storemock/store_mock.go -package=storemock

// Store è il collaboratore di persistenza usato dal server API
type Store interface {
	// ListUsers restituisce gli utenti in ordine di creazione
	ListUsers(ctx context.Context) ([]string, error)

	// CreateUser ripulisce il nome e crea l'account con un documento vuoto
	CreateUser(ctx context.Context, username string) (string, error)

	// GetDocument legge il documento completo dell'utente
	GetDocument(ctx context.Context, username string) (*guide.Document, error)

	// PutDocument sostituisce integralmente il documento dell'utente
	PutDocument(ctx context.Context, username string, doc *guide.Document) error

	// SaveImage salva un'immagine e restituisce il nome file generato
	SaveImage(ctx context.Context, username, originalName string, data []byte) (string, error)

	// ReadImage legge un'immagine caricata in precedenza
	ReadImage(ctx context.Context, username, filename string) ([]byte, error)

	Close() error
}

// Open apre lo store indicato dal driver
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverDisk:
		return NewDisk(path)
	case DriverSQLite:
		return NewSQLite(ctx, path)
	}
	return nil, fmt.Errorf("driver di storage sconosciuto: %q", driver)
}

var imageNameRe = regexp.MustCompile(`^[a-f0-9]{32}(\.[a-z0-9]{1,10})?$`)
var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// imageName genera un nome univoco conservando l'estensione originale
func imageName(originalName string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext := strings.ToLower(filepath.Ext(originalName))
	if extRe.MatchString(ext) {
		name += ext
	}
	return name
}

func checkUser(username string) error {
	if username == "" {
		return ErrUserRequired
	}
	if err := guide.ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return nil
}

func checkImage(filename string) error {
	if !imageNameRe.MatchString(filename) {
		return fmt.Errorf("%w: %q", ErrInvalidImage, filename)
	}
	return nil
}
