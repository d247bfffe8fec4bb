// Package cli definisce i comandi di guideboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"guideboard/client"
	"guideboard/config"
	"guideboard/guide"
	"guideboard/identity"
)

// ErrNoUser nessun utente attivo
var ErrNoUser = errors.New(`nessun utente selezionato: usa "guideboard use NOME" oppure --user`)

// app stato condiviso dai comandi
type app struct {
	configFile string
	verbose    bool
	yes        bool
	user       string

	cfg     *config.Config
	logger  *zap.Logger
	profile *identity.Store
}

// New crea il comando radice
func New() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "guideboard",
		Short:         "Guida a schede per atti, con server REST ed editor da riga di comando",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			zc := zap.NewProductionConfig()
			if a.verbose || cfg.Debug {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			if a.logger, err = zc.Build(); err != nil {
				return fmt.Errorf("impossibile inizializzare il logger: %w", err)
			}

			a.profile = identity.Open(cfg.ProfileDir)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "file di configurazione (default: guideboard.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log di debug")
	flags.BoolVarP(&a.yes, "yes", "y", false, "rispondi sì a tutte le conferme")
	flags.StringVarP(&a.user, "user", "u", "", "utente su cui lavorare (default: quello attivo)")

	addServe(cmd, a)
	addUsers(cmd, a)
	addBoard(cmd, a)
	addSections(cmd, a)
	addLinks(cmd, a)
	addBackup(cmd, a)
	return cmd
}

// Execute esegue il comando radice
func Execute(ctx context.Context) error {
	return New().ExecuteContext(ctx)
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.ServerURL)
}

// currentUser utente del flag --user o quello salvato nel profilo
func (a *app) currentUser() (string, error) {
	if a.user != "" {
		return a.user, nil
	}
	if u := a.profile.CurrentUser(); u != "" {
		return u, nil
	}
	return "", ErrNoUser
}

// withDocument carica il documento dell'utente, applica fn e salva una sola volta
// se fn segnala una modifica. In caso di errore il documento non viene salvato.
func (a *app) withDocument(cmd *cobra.Command, fn func(doc *guide.Document) (bool, error)) error {
	username, err := a.currentUser()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	c := a.client()

	doc, err := c.GetDocument(ctx, username)
	if err != nil {
		return fmt.Errorf("caricamento fallito: %w", err)
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	if err := c.PutDocument(ctx, username, doc); err != nil {
		return fmt.Errorf("salvataggio fallito, riprova: %w", err)
	}
	a.logger.Debug("documento salvato", zap.String("user", username), zap.Int("sezioni", len(doc.Sections)))
	return nil
}

func (a *app) prompter(cmd *cobra.Command) *prompter {
	return newPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), a.yes)
}

func actFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "act", "a", string(guide.Act1), "atto ("+actList()+")")
}

func actList() string {
	names := make([]string, len(guide.Acts))
	for i, act := range guide.Acts {
		names[i] = string(act)
	}
	return strings.Join(names, ", ")
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
