package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/zostay/go-addr/pkg/addr"
)

func newShowCommand(a *app) *cobra.Command {
	var html, fallback bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the headers and readable body of a message file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadFile(cmd, args[0])
			if err != nil {
				return err
			}

			body, err := m.ViewableText(html, fallback)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "From: %s\n", m.Sender)
			if to := m.To(); len(to) > 0 {
				printf(out, "To: %s\n", joinAddresses(to))
			}
			if cc := m.Cc(); len(cc) > 0 {
				printf(out, "Cc: %s\n", joinAddresses(cc))
			}
			printf(out, "Subject: %s\n", m.Subject)
			printf(out, "Date: %s\n", m.PrettyVerboseDate())
			if n := len(m.Attachments()); n > 0 {
				printf(out, "Attachments: %d\n", n)
			}
			printf(out, "\n%s\n", strings.TrimRight(body, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "render the body as HTML")
	cmd.Flags().BoolVar(&fallback, "fallback-html", false, "keep HTML parts as HTML, render the rest as text")
	cmd.MarkFlagsMutuallyExclusive("html", "fallback-html")

	return cmd
}

func joinAddresses(list addr.AddressList) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		parts = append(parts, a.CleanString())
	}
	return strings.Join(parts, ", ")
}
