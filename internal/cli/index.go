package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/config"
	"github.com/gitter-badger/astroid/internal/db"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/migrate"
	"github.com/gitter-badger/astroid/internal/models"
)

func (a *app) openPool(cmd *cobra.Command) (*pgxpool.Pool, error) {
	if a.cfg.StoreBackend != config.BackendPostgres {
		return nil, fmt.Errorf("%s needs the %s store backend", cmd.Name(), config.BackendPostgres)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return db.NewConnection(cmd.Context(), a.cfg)
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres index schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPool(cmd)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			applied, err := migrate.Up(cmd.Context(), pool, a.log)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}
}

func newIndexCommand(a *app) *cobra.Command {
	var (
		threadID string
		parentID string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "index <file>...",
		Short: "Add message files to the Postgres index",
		Long: "Add message files to the Postgres index.\n" +
			"A message joins the thread of its parent (In-Reply-To, or --parent) when the parent is indexed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPool(cmd)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			for _, path := range args {
				m, err := message.FromFile(path, a.messageOptions())
				if err != nil {
					return err
				}

				entry, err := indexEntry(m, threadID, parentID, tags)
				if err != nil {
					return err
				}

				thread, err := db.IndexMessage(cmd.Context(), pool, entry)
				if err != nil {
					return err
				}
				a.log.Info("indexed message", zap.String("message_id", m.MessageID), zap.String("thread_id", thread))
				printf(cmd.OutOrStdout(), "%s %s\n", thread, m.MessageID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread id to add the messages to")
	cmd.Flags().StringVar(&parentID, "parent", "", "message id of the parent, instead of In-Reply-To")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to add, may be repeated")

	return cmd
}

func indexEntry(m *message.Message, threadID, parentID string, tags []string) (db.IndexEntry, error) {
	path, err := filepath.Abs(m.Path())
	if err != nil {
		return db.IndexEntry{}, fmt.Errorf("failed to resolve %s: %w", m.Path(), err)
	}

	if parentID == "" {
		parentID = strings.Trim(m.InReplyTo, "<> \t")
	}

	row := models.Message{
		MessageID: m.MessageID,
		ThreadID:  threadID,
		Filename:  path,
		Tags:      tags,
	}
	if parentID != "" {
		row.ParentMessageID = &parentID
	}
	if !m.Received.IsZero() {
		received := m.Received
		row.SentAt = &received
	}

	return db.IndexEntry{Message: row, Subject: m.Subject}, nil
}
