// Command test-server runs the HTTP API over a throwaway Postgres index
// seeded with a small conversation, for trying out API clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/api"
	"github.com/gitter-badger/astroid/internal/db"
	"github.com/gitter-badger/astroid/internal/logger"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/migrate"
	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/testutil"
)

const address = ":8081"

func main() {
	log := logger.NewDevelopmentLogger()
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("test server failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting test Postgres database")
	container, connStr, err := testutil.StartPostgres(ctx, "astroid_test")
	if err != nil {
		return fmt.Errorf("failed to start Postgres: %w", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Warn("failed to terminate Postgres container", zap.Error(err))
		}
	}()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if _, err := migrate.Up(ctx, pool, log); err != nil {
		return err
	}

	mailDir, err := os.MkdirTemp("", "astroid-test-server-")
	if err != nil {
		return fmt.Errorf("failed to create mail directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(mailDir) }()

	threadID, err := seedTestData(ctx, pool, mailDir)
	if err != nil {
		return fmt.Errorf("failed to seed test data: %w", err)
	}

	server := &http.Server{
		Addr:              address,
		Handler:           api.NewRouter(db.NewStore(pool), message.Options{Logger: log}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("test server ready",
		zap.String("address", address),
		zap.String("thread", "/api/v1/thread/"+threadID),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
}

// seedTestData indexes a three message conversation with an attachment and
// returns its thread id.
func seedTestData(ctx context.Context, pool *pgxpool.Pool, dir string) (string, error) {
	base := time.Now().Add(-3 * time.Hour)

	messages := []struct {
		id, parent, raw string
		tags            []string
	}{
		{
			id: "welcome@test",
			raw: testutil.SimpleMessage("welcome@test", "Welcome to astroid",
				"This is a test message."),
			tags: []string{"inbox"},
		},
		{
			id:     "meeting@test",
			parent: "welcome@test",
			raw: testutil.SimpleMessage("meeting@test", "Re: Welcome to astroid",
				"Don't forget about the meeting tomorrow at 2 PM."),
			tags: []string{"inbox", "unread"},
		},
		{
			id:     "report@test",
			parent: "welcome@test",
			raw:    reportMessage,
			tags:   []string{"inbox", "attachment"},
		},
	}

	threadID := ""
	for i, m := range messages {
		path := filepath.Join(dir, fmt.Sprintf("%d.eml", i))
		if err := os.WriteFile(path, []byte(m.raw), 0o600); err != nil {
			return "", err
		}

		sentAt := base.Add(time.Duration(i) * time.Hour)
		row := models.Message{
			MessageID: m.id,
			Filename:  path,
			SentAt:    &sentAt,
			Tags:      m.tags,
		}
		if m.parent != "" {
			row.ParentMessageID = &m.parent
		}

		id, err := db.IndexMessage(ctx, pool, db.IndexEntry{Message: row, Subject: "Welcome to astroid"})
		if err != nil {
			return "", err
		}
		if threadID == "" {
			threadID = id
		}
	}

	return threadID, nil
}

const reportMessage = `From: Reports <reports@example.com>
To: Bob <bob@example.com>
Subject: Re: Welcome to astroid
Message-Id: <report@test>
Date: Mon, 02 Jan 2006 15:04:05 -0700
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="mix"

--mix
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=utf-8

Here is the Q3 report you requested.
--alt
Content-Type: text/html; charset=utf-8

<p>Here is the <b>Q3 report</b> you requested.</p>
--alt--
--mix
Content-Type: text/csv
Content-Disposition: attachment; filename="q3.csv"

quarter,revenue
Q3,42
--mix--
`
