package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitter-badger/astroid/internal/chunk"
)

func newPartsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parts <file>",
		Short: "List the MIME parts of a message file with their ids and flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadFile(cmd, args[0])
			if err != nil {
				return err
			}

			var b strings.Builder
			writeParts(&b, m.Root(), 0)
			printf(cmd.OutOrStdout(), "%s", b.String())
			return nil
		},
	}
}

// writeParts writes one line per part, indented by depth:
//
//	1 text/html [viewable preferred] "name.html"
func writeParts(b *strings.Builder, n *chunk.Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(strconv.Itoa(n.ID))
	b.WriteString(" ")
	b.WriteString(n.ContentType)

	if flags := nodeFlags(n); len(flags) > 0 {
		b.WriteString(" [" + strings.Join(flags, " ") + "]")
	}
	if n.Filename != "" {
		b.WriteString(" \"" + n.Filename + "\"")
	}
	b.WriteString("\n")

	for _, kid := range n.Kids() {
		writeParts(b, kid, depth+1)
	}
}

func nodeFlags(n *chunk.Node) []string {
	var flags []string
	if n.Viewable {
		flags = append(flags, "viewable")
	}
	if n.Preferred {
		flags = append(flags, "preferred")
	}
	if n.Attachment {
		flags = append(flags, "attachment")
	}
	if n.MimeMessage {
		flags = append(flags, "message")
	}
	return flags
}
