package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSaveCommand(a *app) *cobra.Command {
	var part int

	cmd := &cobra.Command{
		Use:   "save <file> <destination>",
		Short: "Save a message, or one of its parts, to a file or directory",
		Long: "Save a message, or one of its parts, to a file or directory.\n" +
			"A directory destination gets a generated name and existing files are never overwritten.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadFile(cmd, args[0])
			if err != nil {
				return err
			}

			var written string
			if part < 0 {
				written, err = m.SaveTo(args[1])
			} else {
				n, ok := m.ChunkByID(part)
				if !ok {
					return fmt.Errorf("message has no part %d", part)
				}
				written, err = n.SaveTo(args[1])
			}
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", written)
			return nil
		},
	}

	cmd.Flags().IntVar(&part, "part", -1, "id of the part to save, see the parts command")

	return cmd
}
