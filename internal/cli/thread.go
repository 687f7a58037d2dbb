package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
	"github.com/gitter-badger/astroid/internal/thread"
)

func newThreadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <thread-id>",
		Short: "Print the messages of a thread in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := openStore(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer release()

			return printThread(ctx, cmd.OutOrStdout(), s, args[0], a.messageOptions())
		},
	}
}

// printThread writes the thread subject and then one line per message,
// indented by its level.
func printThread(ctx context.Context, out io.Writer, s store.Store, id string, opts message.Options) error {
	th := thread.NewFromStore(id, opts)
	if err := th.LoadMessages(ctx, s); err != nil {
		return err
	}

	printf(out, "%s\n", th.Subject)
	for _, m := range th.Messages {
		line := strings.Repeat("  ", m.Level) + m.PrettyDate() + "  " + m.Sender + "  " + m.Subject
		if len(m.Tags) > 0 {
			line += "  (" + strings.Join(m.Tags, ", ") + ")"
		}
		printf(out, "%s\n", line)
	}
	return nil
}
