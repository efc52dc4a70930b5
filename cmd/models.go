package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"promptgrid/internal/translator"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the selectable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}

			list := a.registry.Models()
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"models":  translator.FromModels(list),
					"default": a.cfg.Form.Model,
				})
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(borderStyle).
				Headers("ID", "Label", "Default").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, m := range list {
				def := ""
				if m.ID == a.cfg.Form.Model {
					def = "*"
				}
				t.Row(m.ID, m.Label, def)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the catalogue as JSON")

	return cmd
}
