// Package identity ricorda l'utente attivo e il tema dell'interfaccia tra un'esecuzione e l'altra.
package identity

import (
	"fmt"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const (
	keyCurrentUser = "current_user"
	keyTheme       = "theme"
)

// Temi supportati
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Store è una piccola superficie chiave-valore su disco
type Store struct {
	d *diskv.Diskv
}

// Open apre le preferenze nella directory indicata
func Open(dir string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

// CurrentUser restituisce l'utente attivo, "" se non impostato
func (s *Store) CurrentUser() string {
	return s.get(keyCurrentUser)
}

// SetCurrentUser imposta l'utente attivo; "" lo azzera
func (s *Store) SetCurrentUser(username string) error {
	if username == "" {
		if s.d.Has(keyCurrentUser) {
			return s.d.Erase(keyCurrentUser)
		}
		return nil
	}
	return s.d.WriteString(keyCurrentUser, username)
}

// Theme restituisce il tema salvato, scuro per default
func (s *Store) Theme() string {
	if t := s.get(keyTheme); t == ThemeLight || t == ThemeDark {
		return t
	}
	return ThemeDark
}

// SetTheme salva il tema
func (s *Store) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("tema non valido: %q", theme)
	}
	return s.d.WriteString(keyTheme, theme)
}

// ToggleTheme alterna scuro/chiaro e restituisce il nuovo tema
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeLight
	if s.Theme() == ThemeLight {
		next = ThemeDark
	}
	return next, s.SetTheme(next)
}

func (s *Store) get(key string) string {
	if !s.d.Has(key) {
		return ""
	}
	return strings.TrimSpace(s.d.ReadString(key))
}
