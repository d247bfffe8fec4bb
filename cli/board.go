package cli

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"guideboard/board"
	"guideboard/guide"
)

func addBoard(topLevel *cobra.Command, a *app) {
	var act string
	var width int

	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Mostra le schede di un atto",
		Example: `
guideboard board
guideboard board --act interlude1
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBoard(cmd, act, func(s *board.State) error {
				printf(cmd.OutOrStdout(), "%s\n", board.Render(s, board.RenderOptions{
					Theme: a.profile.Theme(),
					Width: width,
				}))
				return nil
			})
		},
	}
	actFlag(boardCmd, &act)
	boardCmd.Flags().IntVarP(&width, "width", "w", 0, "larghezza del terminale in colonne")

	var listAct string
	sections := &cobra.Command{
		Use:   "sections",
		Short: "Elenca le sezioni di un atto, comprese le nascoste",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := guide.ParseAct(listAct)
			if err != nil {
				return err
			}
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				printSections(cmd, doc, parsed)
				return false, nil
			})
		},
	}
	actFlag(sections, &listAct)

	nav := &cobra.Command{
		Use:   "nav ID next|prev",
		Short: "Passa alla sezione successiva o precedente della catena",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := guide.ParseDirection(args[1])
			if err != nil {
				return err
			}
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				sec, ok := doc.Section(args[0])
				if !ok {
					return false, fmt.Errorf("%w: %s", guide.ErrSectionNotFound, args[0])
				}
				s, err := board.New(doc, sec.Act)
				if err != nil {
					return false, err
				}
				if !s.Navigate(args[0], dir) {
					printf(cmd.OutOrStdout(), "Nessuna sezione %s nella catena\n", dirLabel(dir))
					return false, nil
				}
				printf(cmd.OutOrStdout(), "✓ %s nascosta, mostrata la %s\n", sec.Title, dirLabel(dir))
				return true, nil
			})
		},
	}

	topLevel.AddCommand(boardCmd, sections, nav)
}

// withBoard carica il documento e apre la board sull'atto; salva se lo stato è cambiato
func (a *app) withBoard(cmd *cobra.Command, act string, fn func(s *board.State) error) error {
	parsed, err := guide.ParseAct(act)
	if err != nil {
		return err
	}
	return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
		s, err := board.New(doc, parsed)
		if err != nil {
			return false, err
		}
		if err := fn(s); err != nil {
			return false, err
		}
		return s.Dirty(), nil
	})
}

func printSections(cmd *cobra.Command, doc *guide.Document, act guide.Act) {
	out := cmd.OutOrStdout()
	sections := guide.ListByAct(doc, act)
	if len(sections) == 0 {
		printf(out, "Nessuna sezione in %s\n", act.Name())
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 50
	tbl.AddRow("ORD", "ID", "TITOLO", "STATO", "CATENA", "ANTEPRIMA")
	for _, s := range sections {
		state := "visibile"
		if s.Hidden {
			state = "nascosta"
		}
		chain := ""
		if l, ok := guide.LinkOf(doc, s.ID); ok {
			chain = fmt.Sprintf("%s %d/%d", l.ID, l.Position(s.ID)+1, len(l.SectionIDs))
		}
		preview, _, _ := strings.Cut(board.PlainText(s.Content), "\n")
		tbl.AddRow(s.Order, s.ID, s.Title, state, chain, preview)
	}
	printf(out, "%s\n%s\n", act.Name(), tbl)
}

func dirLabel(dir guide.Direction) string {
	if dir == guide.Prev {
		return "precedente"
	}
	return "successiva"
}
