package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"guideboard/editor"
	"guideboard/guide"
)

func addBackup(topLevel *cobra.Command, a *app) {
	var output string

	export := &cobra.Command{
		Use:   "export",
		Short: "Esporta il backup completo dell'utente",
		Example: `
guideboard export                 # poe2-guide-backup-<utente>-<data>.json
guideboard export -o -            # su stdout
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.currentUser()
			if err != nil {
				return err
			}
			bundle, raw, err := a.client().Export(cmd.Context(), username)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(append(raw, '\n'))
				return err
			}
			if output == "" {
				output = fmt.Sprintf("poe2-guide-backup-%s-%s.json", username, time.Now().Format("2006-01-02"))
			}
			if err := os.WriteFile(output, raw, 0644); err != nil {
				return fmt.Errorf("errore scrittura %s: %w", output, err)
			}
			printf(cmd.OutOrStdout(), "✓ %d sezioni e %d catene esportate in %s\n",
				len(bundle.Data.Sections), len(bundle.Data.Links), output)
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "file di destinazione (- per stdout)")

	var merge bool
	var as string

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Importa un backup come nuovo utente o unendolo all'utente attivo",
		Long: `Senza --merge il backup diventa un nuovo utente con il nome contenuto nel file
(o quello di --as); se il nome è occupato o non valido ne viene chiesto un altro.
Con --merge le sezioni vengono aggiunte all'utente attivo con nuovi ID;
le catene che non si possono ricostruire vengono scartate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("errore lettura %s: %w", args[0], err)
			}
			// il file viene verificato prima di contattare il server
			if _, err := guide.ParseBundle(raw); err != nil {
				return err
			}
			if merge {
				return a.importMerge(cmd, raw)
			}
			return a.importNewUser(cmd, raw, as)
		},
	}
	importCmd.Flags().BoolVar(&merge, "merge", false, "unisci all'utente attivo invece di crearne uno nuovo")
	importCmd.Flags().StringVar(&as, "as", "", "nome del nuovo utente")

	var sectionID string
	image := &cobra.Command{
		Use:   "image",
		Short: "Immagini incorporate nelle sezioni",
	}
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Carica un'immagine e stampa l'URL da usare nel contenuto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.uploadImage(cmd, args[0], sectionID)
		},
	}
	upload.Flags().StringVarP(&sectionID, "section", "s", "", "aggiunge l'immagine in fondo a questa sezione")
	image.AddCommand(upload)

	topLevel.AddCommand(export, importCmd, image)
}

func (a *app) importMerge(cmd *cobra.Command, raw []byte) error {
	username, err := a.currentUser()
	if err != nil {
		return err
	}
	report, err := a.client().ImportMerge(cmd.Context(), username, raw)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printf(out, "✓ Unione completata: %d sezioni e %d catene aggiunte a %s\n",
		report.SectionsAdded, report.LinksAdded, username)
	if len(report.DroppedLinks) > 0 {
		a.logger.Debug("catene scartate", zap.Strings("links", report.DroppedLinks))
		printf(out, "⚠️  %d catene scartate perché le sezioni non corrispondono\n", len(report.DroppedLinks))
	}
	return nil
}

func (a *app) importNewUser(cmd *cobra.Command, raw []byte, as string) error {
	res, err := a.client().ImportAsNewUser(cmd.Context(), raw, as, a.prompter(cmd).nameChooser())
	if err != nil {
		return err
	}
	if err := a.profile.SetCurrentUser(res.Username); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "✓ Backup importato come %s (utente attivo)\n", res.Username)
	return nil
}

func (a *app) uploadImage(cmd *cobra.Command, path, sectionID string) error {
	username, err := a.currentUser()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c := a.client()
	up, err := c.UploadImage(cmd.Context(), username, path, f)
	if err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "%s\n", c.ImageURL(up))
	if sectionID == "" {
		return nil
	}

	return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
		sec, ok := doc.Section(sectionID)
		if !ok {
			return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, sectionID)
		}
		s, err := editor.NewSession(doc, sec.Act, nil, guide.NewID)
		if err != nil {
			return false, err
		}
		if _, err := s.Load(sectionID); err != nil {
			return false, err
		}
		if err := s.InsertImage(up.URL); err != nil {
			return false, err
		}
		if _, err := s.Save(); err != nil {
			return false, err
		}
		return true, nil
	})
}
