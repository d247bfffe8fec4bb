package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"guideboard/board"
	"guideboard/editor"
	"guideboard/guide"
)

func addSections(topLevel *cobra.Command, a *app) {
	section := &cobra.Command{
		Use:   "section",
		Short: "Crea, modifica e sistema le sezioni",
	}

	section.AddCommand(
		sectionAdd(a),
		sectionEdit(a),
		sectionDelete(a),
		sectionCopy(a),
		sectionReorder(a),
		sectionMove(a),
		sectionPlace(a),
		sectionResize(a),
		sectionVisibility(a, "hide", "Nasconde una sezione nella barra delle nascoste", true),
		sectionVisibility(a, "show", "Riporta una sezione nascosta sulla board", false),
		sectionDoodle(a),
	)
	topLevel.AddCommand(section)
}

// withSession apre l'editor sul documento dell'utente; salva se fn lo richiede
func (a *app) withSession(cmd *cobra.Command, act string, fn func(s *editor.Session) (bool, error)) error {
	parsed, err := guide.ParseAct(act)
	if err != nil {
		return err
	}
	p := a.prompter(cmd)
	return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
		s, err := editor.NewSession(doc, parsed, p.editorConfirmer(), guide.NewID)
		if err != nil {
			return false, err
		}
		return fn(s)
	})
}

func contentFlags(cmd *cobra.Command, c *contentInput) {
	cmd.Flags().StringVarP(&c.text, "content", "c", "", "contenuto HTML della sezione")
	cmd.Flags().StringVarP(&c.file, "file", "f", "", "legge il contenuto da un file (.md = Markdown)")
	cmd.Flags().BoolVarP(&c.markdown, "markdown", "m", false, "interpreta il contenuto come Markdown")
}

func sectionAdd(a *app) *cobra.Command {
	var act string
	var content contentInput

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Aggiunge una sezione in coda all'atto",
		Example: `
guideboard section add "Clearfell" --act act1 --content "<p>Parla con Renly</p>"
guideboard section add "Boss" --markdown --content "**Attenzione** al fuoco"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := content.html()
			if err != nil {
				return err
			}
			return a.withSession(cmd, act, func(s *editor.Session) (bool, error) {
				if _, err := s.New(); err != nil {
					return false, err
				}
				if err := s.Edit(args[0], body); err != nil {
					return false, err
				}
				saved, err := s.Save()
				if err != nil {
					return false, err
				}
				printf(cmd.OutOrStdout(), "✓ Sezione %s aggiunta a %s (%s)\n", saved.Title, saved.Act.Name(), saved.ID)
				return true, nil
			})
		},
	}
	actFlag(cmd, &act)
	contentFlags(cmd, &content)
	return cmd
}

func sectionEdit(a *app) *cobra.Command {
	var title string
	var content contentInput

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Modifica titolo o contenuto di una sezione",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && !content.given() {
				return fmt.Errorf("niente da modificare: usa --title, --content o --file")
			}
			var body string
			if content.given() {
				var err error
				if body, err = content.html(); err != nil {
					return err
				}
			}
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				sec, ok := doc.Section(args[0])
				if !ok {
					return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, args[0])
				}
				s, err := editor.NewSession(doc, sec.Act, nil, guide.NewID)
				if err != nil {
					return false, err
				}
				if _, err := s.Load(sec.ID); err != nil {
					return false, err
				}
				newTitle, newBody := s.Current().Title, s.Current().Content
				if title != "" {
					newTitle = title
				}
				if content.given() {
					newBody = body
				}
				if err := s.Edit(newTitle, newBody); err != nil {
					return false, err
				}
				if !s.Dirty() {
					printf(cmd.OutOrStdout(), "Nessuna modifica\n")
					return false, nil
				}
				if _, err := s.Save(); err != nil {
					return false, err
				}
				printf(cmd.OutOrStdout(), "✓ Sezione %s aggiornata\n", sec.ID)
				return true, nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "nuovo titolo")
	contentFlags(cmd, &content)
	return cmd
}

func sectionDelete(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Elimina una sezione (e la toglie dalla sua catena)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.prompter(cmd)
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				sec, ok := doc.Section(args[0])
				if !ok {
					return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, args[0])
				}
				s, err := editor.NewSession(doc, sec.Act, p.editorConfirmer(), guide.NewID)
				if err != nil {
					return false, err
				}
				if _, err := s.Load(sec.ID); err != nil {
					return false, err
				}
				deleted, err := s.Delete()
				if err != nil || !deleted {
					return false, err
				}
				printf(cmd.OutOrStdout(), "✓ Sezione %s eliminata\n", sec.Title)
				return true, nil
			})
		},
	}
}

func sectionCopy(a *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "copy ID... --to ACT",
		Short: "Copia una o più sezioni in coda a un altro atto",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := guide.ParseAct(target)
			if err != nil {
				return err
			}
			return a.withSession(cmd, string(to), func(s *editor.Session) (bool, error) {
				copies, err := s.CopySelected(args, to)
				if err != nil {
					return false, err
				}
				for _, c := range copies {
					printf(cmd.OutOrStdout(), "✓ %s copiata in %s (%s)\n", c.Title, to.Name(), c.ID)
				}
				return true, nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "atto di destinazione")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func sectionReorder(a *app) *cobra.Command {
	var act string

	cmd := &cobra.Command{
		Use:   "reorder ID...",
		Short: "Riordina le sezioni dell'atto: vanno elencate tutte, oppure tutte le visibili",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := guide.ParseAct(act)
			if err != nil {
				return err
			}
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				if err := guide.Reorder(doc, parsed, args); err != nil {
					return false, err
				}
				printSections(cmd, doc, parsed)
				return true, nil
			})
		},
	}
	actFlag(cmd, &act)
	return cmd
}

func sectionMove(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID TARGET",
		Short: "Sposta una sezione sopra o sotto un'altra, come nell'elenco dell'editor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				sec, ok := doc.Section(args[0])
				if !ok {
					return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, args[0])
				}
				s, err := editor.NewSession(doc, sec.Act, nil, guide.NewID)
				if err != nil {
					return false, err
				}
				if err := s.Move(args[0], args[1]); err != nil {
					return false, err
				}
				printSections(cmd, doc, sec.Act)
				return true, nil
			})
		},
	}
}

func sectionPlace(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "place ID SLOT",
		Short: "Rilascia una scheda visibile nello slot indicato della board (0 = prima)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("slot non valido: %q", args[1])
			}
			return a.withSectionBoard(cmd, args[0], func(s *board.State) error {
				if err := s.BeginDrag(args[0]); err != nil {
					return err
				}
				return s.DropAt(slot)
			})
		},
	}
}

func sectionResize(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resize ID WIDTH HEIGHT",
		Short: "Imposta le dimensioni della scheda (minimo 200x100)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("larghezza non valida: %q", args[1])
			}
			h, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("altezza non valida: %q", args[2])
			}
			return a.withSectionBoard(cmd, args[0], func(s *board.State) error {
				return s.Resize(args[0], w, h)
			})
		},
	}
}

func sectionVisibility(a *app, use, short string, hidden bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSectionBoard(cmd, args[0], func(s *board.State) error {
				if hidden {
					return s.Hide(args[0])
				}
				return s.Show(args[0])
			})
		},
	}
}

func sectionDoodle(a *app) *cobra.Command {
	var clearDoodle bool

	cmd := &cobra.Command{
		Use:   "doodle ID [IMAGE]",
		Short: "Salva un'immagine come annotazione della scheda, o la cancella con --clear",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := ""
			switch {
			case clearDoodle:
			case len(args) == 2:
				var err error
				if uri, err = imageDataURI(args[1]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("indica un'immagine oppure --clear")
			}
			return a.withSectionBoard(cmd, args[0], func(s *board.State) error {
				if _, err := s.BeginAnnotation(args[0]); err != nil {
					return err
				}
				if err := s.Draw(uri); err != nil {
					s.DiscardAnnotation()
					return err
				}
				_, err := s.EndAnnotation()
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&clearDoodle, "clear", false, "cancella l'annotazione")
	return cmd
}

// withSectionBoard apre la board sull'atto della sezione indicata
func (a *app) withSectionBoard(cmd *cobra.Command, sectionID string, fn func(s *board.State) error) error {
	return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
		sec, ok := doc.Section(sectionID)
		if !ok {
			return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, sectionID)
		}
		s, err := board.New(doc, sec.Act)
		if err != nil {
			return false, err
		}
		if err := fn(s); err != nil {
			return false, err
		}
		if s.Dirty() {
			printf(cmd.OutOrStdout(), "✓ %s aggiornata\n", sec.Title)
		}
		return s.Dirty(), nil
	})
}
