package ports

import (
	"context"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

// SettingsRepository loads and stores the user-facing configuration. Load
// returns zero-value settings when no configuration file exists yet.
type SettingsRepository interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}
