package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/config"
	"github.com/aristath/quantum-portfolio/internal/database"
)

// InitializeDatabases opens history.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// history.db - Optimization run history (reports, failures, archive keys)
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	if err := historyDB.Migrate(); err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	container.HistoryDB = historyDB

	log.Info().Str("path", historyDB.Path()).Msg("History database initialized")

	return container, nil
}
