package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"

	"guideboard/guide"
)

const usersKey = "data/users.json"

// Disk conserva i dati su filesystem con la stessa struttura del server originale:
//
//	data/users.json
//	users/<nome>/data.json
//	users/<nome>/images/<file>
type Disk struct {
	d        *diskv.Diskv
	basePath string
	// protegge la lettura-modifica-scrittura di users.json
	mu sync.Mutex
}

type usersFile struct {
	Users []string `json:"users"`
}

// NewDisk crea uno store su disco nella directory indicata
func NewDisk(basePath string) (*Disk, error) {
	if basePath == "" {
		return nil, fmt.Errorf("directory dati non specificata")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("impossibile creare la directory dati: %w", err)
	}

	s := &Disk{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			TempDir:           filepath.Join(basePath, ".tmp"),
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			// niente cache: i documenti possono cambiare fuori dal server
			CacheSizeMax: 0,
		}),
		basePath: basePath,
	}

	if !s.d.Has(usersKey) {
		if err := s.writeJSON(usersKey, usersFile{Users: []string{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// UsersDir è la directory che contiene le cartelle degli utenti
func (s *Disk) UsersDir() string {
	return filepath.Join(s.basePath, "users")
}

func (s *Disk) ListUsers(ctx context.Context) ([]string, error) {
	uf, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	return uf.Users, nil
}

func (s *Disk) CreateUser(ctx context.Context, username string) (string, error) {
	name := guide.SanitizeUsername(username)
	if name == "" {
		return "", ErrUserRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.readUsers()
	if err != nil {
		return "", err
	}
	for _, u := range uf.Users {
		if u == name {
			return "", fmt.Errorf("%w: %s", ErrUserExists, name)
		}
	}

	if err := os.MkdirAll(filepath.Join(s.UsersDir(), name, "images"), 0755); err != nil {
		return "", fmt.Errorf("errore creazione directory utente: %w", err)
	}
	if err := s.writeJSON(dataKey(name), guide.NewDocument()); err != nil {
		return "", err
	}

	uf.Users = append(uf.Users, name)
	if err := s.writeJSON(usersKey, uf); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Disk) GetDocument(ctx context.Context, username string) (*guide.Document, error) {
	if err := checkUser(username); err != nil {
		return nil, err
	}
	if !s.d.Has(dataKey(username)) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	raw, err := s.d.Read(dataKey(username))
	if err != nil {
		return nil, fmt.Errorf("errore lettura documento: %w", err)
	}
	doc := guide.NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("documento corrotto per %s: %w", username, err)
	}
	doc.Normalize()
	return doc, nil
}

func (s *Disk) PutDocument(ctx context.Context, username string, doc *guide.Document) error {
	if err := checkUser(username); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(s.UsersDir(), username)); err != nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return s.writeJSON(dataKey(username), doc)
}

func (s *Disk) SaveImage(ctx context.Context, username, originalName string, data []byte) (string, error) {
	if err := checkUser(username); err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.UsersDir(), username, "images")); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	filename := imageName(originalName)
	if err := s.d.Write(imageKey(username, filename), data); err != nil {
		return "", fmt.Errorf("errore salvataggio immagine: %w", err)
	}
	return filename, nil
}

func (s *Disk) ReadImage(ctx context.Context, username, filename string) ([]byte, error) {
	if err := checkUser(username); err != nil {
		return nil, err
	}
	if err := checkImage(filename); err != nil {
		return nil, err
	}
	key := imageKey(username, filename)
	if !s.d.Has(key) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, filename)
	}
	return s.d.Read(key)
}

func (s *Disk) Close() error {
	return nil
}

func (s *Disk) readUsers() (usersFile, error) {
	uf := usersFile{Users: []string{}}
	raw, err := s.d.Read(usersKey)
	if err != nil {
		return uf, fmt.Errorf("errore lettura utenti: %w", err)
	}
	if err := json.Unmarshal(raw, &uf); err != nil {
		return uf, fmt.Errorf("users.json corrotto: %w", err)
	}
	if uf.Users == nil {
		uf.Users = []string{}
	}
	return uf, nil
}

func (s *Disk) writeJSON(key string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("errore serializzazione %s: %w", key, err)
	}
	if err := s.d.Write(key, raw); err != nil {
		return fmt.Errorf("errore scrittura %s: %w", key, err)
	}
	return nil
}

func dataKey(username string) string {
	return "users/" + username + "/data.json"
}

func imageKey(username, filename string) string {
	return "users/" + username + "/images/" + filename
}

func keyToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), "/")
}
