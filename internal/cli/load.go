package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/macropower/chipper/api/v1beta1/configs"
)

// loadConfig writes the default configuration if none exists yet, then
// loads it. A configuration that cannot be found yields the defaults; one
// that is invalid is an error.
func loadConfig(ra *RootArgs) (*configs.Config, error) {
	path := ra.GetConfigPath()

	err := configs.WriteDefault(path, false)
	if err != nil {
		slog.Error("write default config", slog.Any("err", err))
	}

	cfg, err := configs.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read config, using defaults", slog.String("path", path))
		return configs.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	slog.Debug("loaded config", slog.String("path", path))

	return cfg, nil
}
