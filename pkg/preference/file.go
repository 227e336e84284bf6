package preference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/rule"
)

var _ Store = (*FileStore)(nil)

// FileStore is a [Store] backed by a Preferences document on disk. Changes
// made through it are written back to the file.
//
// While the file cannot be loaded, reads return [ErrStoreUnavailable].
type FileStore struct {
	*Memory

	loadErr error
	path    string
	errMu   sync.RWMutex
}

// NewFileStore creates a [FileStore] for path and loads it. A missing file
// is treated as empty preferences; any other load failure is returned, and
// the store stays unavailable until a later [FileStore.Reload] succeeds.
func NewFileStore(path string, opts ...MemoryOpt) (*FileStore, error) {
	s := &FileStore{
		Memory: NewMemory(opts...),
		path:   path,
	}
	s.persist = s.write

	return s, s.Reload()
}

// Path returns the path of the preferences file.
func (s *FileStore) Path() string {
	return s.path
}

// Reload re-reads the preferences file.
func (s *FileStore) Reload() error {
	p, err := preferences.Load(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		p, err = preferences.New(), nil
	}

	s.errMu.Lock()
	s.loadErr = err
	s.errMu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.Replace(p)

	return nil
}

func (s *FileStore) unavailable() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()

	if s.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, s.loadErr)
	}

	return nil
}

// GlobalPreference implements [Store].
func (s *FileStore) GlobalPreference(ctx context.Context) (string, error) {
	err := s.unavailable()
	if err != nil {
		return "", err
	}

	return s.Memory.GlobalPreference(ctx)
}

// ActiveTimePreference implements [Store].
func (s *FileStore) ActiveTimePreference(ctx context.Context) (*rule.TimeRule, error) {
	err := s.unavailable()
	if err != nil {
		return nil, err
	}

	return s.Memory.ActiveTimePreference(ctx)
}

func (s *FileStore) write(p *preferences.Preferences) error {
	err := s.unavailable()
	if err != nil {
		// Writing now would replace a file the user is editing.
		return err
	}

	err = p.Write(s.path)
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	return nil
}

// Watch reloads the store whenever the preferences file is written or
// created, calling onReload after each successful reload. It
// blocks until ctx is done.
//
// The parent directory is watched rather than the file, so that editors
// which save by renaming a new file into place are noticed. It is created
// if it does not exist yet, so a file written later is still picked up.
func (s *FileStore) Watch(ctx context.Context, onReload func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("err", err))
		}
	}()

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("get absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)

	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}

	err = watcher.Add(dir)
	if err != nil {
		return fmt.Errorf("add path to watcher: %w", err)
	}

	logger := log.WithContext(ctx)
	logger.DebugContext(ctx, "watching preferences", slog.String("path", absPath))

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(evt.Name) != absPath {
				continue
			}

			// Ignore events that are not related to file content changes.
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}

			err := s.Reload()
			if err != nil {
				logger.WarnContext(ctx, "reload preferences",
					slog.String("event", evt.String()),
					slog.Any("error", err),
				)

				continue
			}

			logger.InfoContext(ctx, "reloaded preferences", slog.String("path", absPath))

			if onReload != nil {
				onReload(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorContext(ctx, "watch preferences", slog.Any("error", err))
		}
	}
}
