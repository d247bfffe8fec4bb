package cli

import (
	"fmt"
	"slices"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"guideboard/identity"
)

func addUsers(topLevel *cobra.Command, a *app) {
	users := &cobra.Command{
		Use:   "users",
		Short: "Elenca o crea utenti",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listUsers(cmd)
		},
	}

	users.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Elenca gli utenti",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listUsers(cmd)
		},
	})

	users.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Crea un utente e lo rende attivo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.client().CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.profile.SetCurrentUser(name); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "✓ Utente %s creato e selezionato\n", name)
			return nil
		},
	})

	use := &cobra.Command{
		Use:   "use NAME",
		Short: "Seleziona l'utente attivo",
		Example: `
guideboard use exile
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.client().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if !slices.Contains(names, args[0]) {
				return fmt.Errorf("utente %q non trovato", args[0])
			}
			if err := a.profile.SetCurrentUser(args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "✓ Utente attivo: %s\n", args[0])
			return nil
		},
	}

	theme := &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Mostra o cambia il tema della board",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{identity.ThemeDark, identity.ThemeLight, "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch {
			case len(args) == 0:
			case args[0] == "toggle":
				_, err = a.profile.ToggleTheme()
			default:
				err = a.profile.SetTheme(args[0])
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Tema: %s\n", a.profile.Theme())
			return nil
		},
	}

	topLevel.AddCommand(users, use, theme)
}

func (a *app) listUsers(cmd *cobra.Command) error {
	names, err := a.client().ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		printf(out, "Nessun utente. Creane uno con \"guideboard users create NOME\".\n")
		return nil
	}

	current := a.profile.CurrentUser()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", "UTENTE")
	for _, name := range names {
		marker := ""
		if name == current {
			marker = "*"
		}
		tbl.AddRow(marker, name)
	}
	printf(out, "%s\n", tbl)
	return nil
}
