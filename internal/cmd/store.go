package cmd

import (
	"context"
	"fmt"

	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/core/store"
)

// openStore opens the configured database and applies the schema.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}
