package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/config"
	"github.com/gitter-badger/astroid/internal/db"
	"github.com/gitter-badger/astroid/internal/imap"
	"github.com/gitter-badger/astroid/internal/store"
)

// openStore opens the store selected by store.backend. The returned function
// releases it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewConnection(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
		return db.NewStore(pool), func() { db.CloseConnection(pool) }, nil

	case config.BackendIMAP:
		c, err := imap.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
			_ = c.Logout()
			return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		log.Info("connected to IMAP server", zap.String("server", cfg.IMAPServer), zap.String("mailbox", cfg.IMAPMailbox))
		mailbox := imap.NewMailbox(c, cfg.IMAPMailbox)
		return imap.NewStore(mailbox, cfg.IMAPMailbox, cfg.CacheDir, log), func() { _ = c.Logout() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
