// Package cli holds the astroid commands.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/config"
	"github.com/gitter-badger/astroid/internal/logger"
	"github.com/gitter-badger/astroid/internal/message"
)

// app is the state shared by the commands, filled in before any of them
// runs.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) messageOptions() message.Options {
	return message.Options{
		Tree:   a.cfg.TreeOptions(),
		Logger: a.log,
	}
}

// loadFile reads a message from path, or from stdin when path is "-".
func (a *app) loadFile(cmd *cobra.Command, path string) (*message.Message, error) {
	if path == "-" {
		return message.FromReader(cmd.InOrStdin(), a.messageOptions())
	}
	return message.FromFile(path, a.messageOptions())
}

// NewRootCommand returns the astroid command with all subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "astroid",
		Short:             "Read messages and conversation threads",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	rootCmd.AddCommand(
		newShowCommand(a),
		newPartsCommand(a),
		newSaveCommand(a),
		newThreadCommand(a),
		newServeCommand(a),
		newMigrateCommand(a),
		newIndexCommand(a),
	)

	return rootCmd
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
