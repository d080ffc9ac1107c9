package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"shelfql/internal/bookstore"
	"shelfql/internal/fixtures"
	"shelfql/internal/query"
	"shelfql/internal/storage"
)

// openSession opens the configured storage backend and wraps it in a query
// session. The returned closer releases the connection.
func openSession(ctx context.Context) (*query.Session, func(), error) {
	st, err := storage.New(ctx, storage.Config{
		Type:       cfg.Storage.Type,
		SQLite:     storage.SQLiteConfig{Path: cfg.Storage.Path},
		PostgreSQL: storage.PostgreSQLConfig{URL: cfg.Storage.DSN},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	dialect := query.DialectSQLite
	if st.Type() == storage.TypePostgreSQL {
		dialect = query.DialectPostgres
	}
	sess := query.NewSession(st.DB(), dialect)
	return sess, func() { _ = st.Close() }, nil
}

func loadFixturesCmd() *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "load-fixtures",
		Short: "Create the bookstore schema and load the embedded dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, closeStorage, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer closeStorage()

			if drop {
				if err := bookstore.DropSchema(ctx, sess); err != nil {
					return err
				}
			}
			if err := bookstore.CreateSchema(ctx, sess); err != nil {
				return err
			}
			if err := fixtures.Load(ctx, sess, bookstore.Tables(), bookstore.Fixture); err != nil {
				return err
			}

			slog.Info("fixtures loaded", "storage", cfg.Storage.Type, "queries", sess.Queries())
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "drop existing tables first")
	return cmd
}
