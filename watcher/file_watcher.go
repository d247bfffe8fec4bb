package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DocumentWatcher monitora i data.json degli utenti e segnala le modifiche
// fatte fuori dal server (editing a mano, sincronizzazioni, altri processi)
type DocumentWatcher struct {
	watcher      *fsnotify.Watcher
	usersDir     string
	debounceTime time.Duration
	eventChan    chan WatchEvent
	logger       *zap.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	watched map[string]bool
	// salvataggi del server da non rinviare come modifiche esterne
	ignoreUntil map[string]time.Time
	closed      bool
}

// WatchEvent rappresenta una modifica al documento di un utente
type WatchEvent struct {
	Type      string    // "document_changed", "document_deleted", "user_created"
	Username  string    // Utente interessato
	Path      string    // Path del file
	Timestamp time.Time // Quando è successo
}

// WatcherConfig configurazione per il watcher
type WatcherConfig struct {
	UsersDir     string        // Directory users/ dello store su disco
	DebounceTime time.Duration // Tempo di debounce (default: 500ms)
	Logger       *zap.Logger
}

// NewDocumentWatcher crea un nuovo watcher
func NewDocumentWatcher(config WatcherConfig) (*DocumentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("errore creazione watcher: %w", err)
	}

	if config.DebounceTime == 0 {
		config.DebounceTime = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	dw := &DocumentWatcher{
		watcher:      w,
		usersDir:     config.UsersDir,
		debounceTime: config.DebounceTime,
		eventChan:    make(chan WatchEvent, 100),
		logger:       config.Logger,
		timers:       make(map[string]*time.Timer),
		watched:      make(map[string]bool),
		ignoreUntil:  make(map[string]time.Time),
	}

	if err := os.MkdirAll(config.UsersDir, 0755); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("errore creazione %s: %w", config.UsersDir, err)
	}
	if err := dw.addPath(config.UsersDir); err != nil {
		_ = w.Close()
		return nil, err
	}

	entries, err := os.ReadDir(config.UsersDir)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("errore lettura %s: %w", config.UsersDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := dw.addPath(filepath.Join(config.UsersDir, e.Name())); err != nil {
				_ = w.Close()
				return nil, err
			}
		}
	}
	return dw, nil
}

// Run elabora gli eventi finché il context non viene cancellato
func (dw *DocumentWatcher) Run(ctx context.Context) error {
	dw.logger.Info("👀 Watcher documenti avviato", zap.String("dir", dw.usersDir))
	defer func() {
		dw.mu.Lock()
		for _, t := range dw.timers {
			t.Stop()
		}
		dw.timers = map[string]*time.Timer{}
		dw.closed = true
		close(dw.eventChan)
		dw.mu.Unlock()
		_ = dw.watcher.Close()
		dw.logger.Info("🛑 Watcher documenti fermato")
	}()

	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return nil
			}
			dw.handle(event)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return nil
			}
			dw.logger.Warn("errore watcher", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

// Events restituisce il canale degli eventi
func (dw *DocumentWatcher) Events() <-chan WatchEvent {
	return dw.eventChan
}

// Ignore sopprime gli eventi per l'utente nella finestra di debounce successiva,
// così i salvataggi fatti dal server stesso non tornano indietro come modifiche esterne
func (dw *DocumentWatcher) Ignore(username string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.ignoreUntil[username] = time.Now().Add(dw.debounceTime + time.Second)
}

func (dw *DocumentWatcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(dw.usersDir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	// nuova cartella utente
	if len(parts) == 1 {
		if event.Op&fsnotify.Create == fsnotify.Create {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := dw.addPath(event.Name); err != nil {
					dw.logger.Warn("impossibile monitorare la cartella utente", zap.Error(err))
				}
				dw.emit(WatchEvent{Type: "user_created", Username: parts[0], Path: event.Name, Timestamp: time.Now()})
			}
		}
		return
	}

	// solo users/<nome>/data.json
	if len(parts) != 2 || parts[1] != "data.json" {
		return
	}
	username := parts[0]

	var eventType string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
		eventType = "document_changed"
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = "document_deleted"
	default:
		return
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()

	// debounce: un salvataggio genera più eventi ravvicinati
	if timer, exists := dw.timers[username]; exists {
		timer.Stop()
	}
	path := event.Name
	dw.timers[username] = time.AfterFunc(dw.debounceTime, func() {
		dw.mu.Lock()
		delete(dw.timers, username)
		until, ignored := dw.ignoreUntil[username]
		if ignored && time.Now().Before(until) {
			dw.mu.Unlock()
			return
		}
		delete(dw.ignoreUntil, username)
		dw.mu.Unlock()

		dw.logger.Debug("📝 documento modificato", zap.String("user", username), zap.String("type", eventType))
		dw.emit(WatchEvent{Type: eventType, Username: username, Path: path, Timestamp: time.Now()})
	})
}

func (dw *DocumentWatcher) emit(ev WatchEvent) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	// un timer può scattare durante lo stop
	if dw.closed {
		return
	}
	select {
	case dw.eventChan <- ev:
	default:
		dw.logger.Warn("coda eventi piena, evento scartato", zap.String("type", ev.Type))
	}
}

func (dw *DocumentWatcher) addPath(path string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.watched[path] {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return fmt.Errorf("errore aggiunta path %s: %w", path, err)
	}
	dw.watched[path] = true
	return nil
}
