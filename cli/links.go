package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"guideboard/editor"
	"guideboard/guide"
)

func addLinks(topLevel *cobra.Command, a *app) {
	link := &cobra.Command{
		Use:   "link",
		Short: "Gestisce le catene di sezioni",
	}

	link.AddCommand(&cobra.Command{
		Use:   "create COLOR ID ID...",
		Short: "Crea una catena con le sezioni nell'ordine dato",
		Long: `Crea una catena colorata. COLOR è uno dei valori della palette
(` + strings.Join(guide.Palette, " ") + `) oppure il suo numero da 1 a 8.
Le sezioni già in un'altra catena vengono spostate dopo conferma.`,
		Example: `
guideboard link create 1 01hx... 01hy...
guideboard link create "#3498db" 01hx... 01hy... 01hz... --yes
`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := parseColor(args[0])
			if err != nil {
				return err
			}
			p := a.prompter(cmd)
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				s, err := editor.NewSession(doc, guide.Act1, nil, guide.NewID)
				if err != nil {
					return false, err
				}
				l, err := s.SaveLink(color, args[1:], p.transferDecider())
				if err != nil {
					return false, err
				}
				printf(cmd.OutOrStdout(), "✓ Catena %s creata con %d sezioni\n", l.ID, len(l.SectionIDs))
				return true, nil
			})
		},
	})

	link.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Elimina una catena (le sezioni restano)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				if err := guide.DeleteLink(doc, args[0]); err != nil {
					return false, err
				}
				printf(cmd.OutOrStdout(), "✓ Catena %s eliminata\n", args[0])
				return true, nil
			})
		},
	})

	link.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Elenca le catene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(cmd, func(doc *guide.Document) (bool, error) {
				printLinks(cmd, doc)
				return false, nil
			})
		},
	})

	topLevel.AddCommand(link)
}

func parseColor(s string) (string, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > len(guide.Palette) {
			return "", fmt.Errorf("%w: %s", guide.ErrUnknownColor, s)
		}
		return guide.Palette[n-1], nil
	}
	color := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	if !guide.ValidColor(color) {
		return "", fmt.Errorf("%w: %s", guide.ErrUnknownColor, s)
	}
	return color, nil
}

func printLinks(cmd *cobra.Command, doc *guide.Document) {
	out := cmd.OutOrStdout()
	if len(doc.Links) == 0 {
		printf(out, "Nessuna catena\n")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.Wrap = true
	tbl.MaxColWidth = 60
	tbl.AddRow("ID", "COLORE", "SEZIONI")
	for _, l := range doc.Links {
		titles := make([]string, 0, len(l.SectionIDs))
		for _, id := range l.SectionIDs {
			if s, ok := doc.Section(id); ok {
				titles = append(titles, s.Title)
			} else {
				titles = append(titles, id+"?")
			}
		}
		tbl.AddRow(l.ID, l.Color, strings.Join(titles, " → "))
	}
	printf(out, "%s\n", tbl)
}
