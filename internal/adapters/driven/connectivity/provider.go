package connectivity

import (
	"fmt"
	"path/filepath"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// New selects a provider for the configured mode. configDir resolves the
// default state file in file mode.
func New(settings domain.AppSettings, configDir string) (driven.ConnectivityProvider, error) {
	switch settings.Connectivity.Mode {
	case domain.ConnectivityProbe, "":
		return NewProbe(settings.API.BaseURL, settings.Connectivity.ProbeInterval, nil), nil
	case domain.ConnectivityFile:
		path := settings.Connectivity.StateFile
		if path == "" {
			path = filepath.Join(configDir, StateFileName)
		}
		return NewFileSignal(path), nil
	case domain.ConnectivityAlways:
		return NewStatic(true), nil
	default:
		return nil, fmt.Errorf("%w: unknown connectivity mode %q", domain.ErrInvalidInput, settings.Connectivity.Mode)
	}
}
