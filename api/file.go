// Package api contains chipper's versioned document kinds and the file helpers
// used to locate, read and write them.
package api

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// AppName names chipper's config and state directories.
const AppName = "chipper"

// GetConfigPath returns the path to a file in the user's config directory.
// It checks $XDG_CONFIG_HOME first, then ~/.config, and finally a temp
// directory.
func GetConfigPath(filename string) string {
	return xdgPath("XDG_CONFIG_HOME", ".config", filename)
}

// GetStatePath returns the path to a file in the user's state directory.
// It checks $XDG_STATE_HOME first, then ~/.local/state, and finally a temp
// directory.
func GetStatePath(filename string) string {
	return xdgPath("XDG_STATE_HOME", filepath.Join(".local", "state"), filename)
}

func xdgPath(envVar, homeDir, filename string) string {
	if base, ok := os.LookupEnv(envVar); ok && base != "" {
		return filepath.Join(base, AppName, filename)
	}

	usrHome, err := os.UserHomeDir()
	if err == nil && usrHome != "" {
		return filepath.Join(usrHome, homeDir, AppName, filename)
	}

	tmpPath := filepath.Join(os.TempDir(), AppName, filename)

	slog.Warn("could not determine user directory, using temp path",
		slog.String("path", tmpPath),
		slog.Any("error", fmt.Errorf("$%s is unset, fall back to home directory: %w", envVar, err)),
	)

	return tmpPath
}

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	pathInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if pathInfo.IsDir() {
		return nil, fmt.Errorf("%s: path is a directory", path)
	}
	if !pathInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: unknown file state", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// WriteFile replaces the file at path with data. The data is written to a
// temporary file in the same directory and renamed into place, so watchers
// never observe a partial write.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// WriteIfNotExists writes data to path if no file exists there yet.
func WriteIfNotExists(path string, data []byte) error {
	pathInfo, err := os.Stat(path)
	if pathInfo != nil {
		if err == nil && pathInfo.Mode().IsRegular() {
			return nil // File already exists.
		}
		if pathInfo.IsDir() {
			return fmt.Errorf("%s: path is a directory", path)
		}

		return fmt.Errorf("%s: unknown file state", path)
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// WriteDefaultFile writes defaultData to path. With force, an existing file
// is renamed to a timestamped backup first; otherwise it is left alone.
func WriteDefaultFile(path string, defaultData []byte, force bool, kind string) error {
	fileExists := false

	pathInfo, err := os.Stat(path)
	if pathInfo != nil {
		switch {
		case err == nil && pathInfo.Mode().IsRegular():
			fileExists = true
		case pathInfo.IsDir():
			return fmt.Errorf("%s: path is a directory", path)
		default:
			return fmt.Errorf("%s: unknown file state", path)
		}
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if fileExists && !force {
		slog.Debug("file already exists, skipping write",
			slog.String("type", kind),
			slog.String("path", path),
		)

		return nil
	}

	if fileExists {
		backupPath := filepath.Join(filepath.Dir(path),
			fmt.Sprintf("%s.%d.old", filepath.Base(path), time.Now().UnixNano()))

		slog.Info("backing up existing file",
			slog.String("type", kind),
			slog.String("path", backupPath),
		)

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing %s file to backup: %w", kind, err)
		}
	}

	slog.Info("write default file",
		slog.String("type", kind),
		slog.String("path", path),
	)

	err = os.WriteFile(path, defaultData, 0o600)
	if err != nil {
		return fmt.Errorf("write %s file: %w", kind, err)
	}

	return nil
}
