package fieldprofile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/ports"
)

// profileFile is the TOML layout:
//
//	[contact]
//	first_name = "first-name"
//	last_name = "last-name"
//	name = ["your-name", "name"]
//	email = ["your-email", "email"]
//	phone = ["tel", "phone"]
type profileFile struct {
	Contact submission.Aliases `toml:"contact"`
}

// Load reads a profile. Keys the file leaves out keep their built-in
// defaults.
func Load(path string) (submission.Aliases, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return submission.DefaultAliases(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return submission.Aliases{}, errs.Wrapf(err, "read field profile %q", path)
	}

	profile := profileFile{Contact: submission.DefaultAliases()}
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return submission.Aliases{}, errs.Wrapf(err, "parse field profile %q", path)
	}
	return profile.Contact, nil
}

// Store holds the current aliases and can reload them from disk.
type Store struct {
	path string

	mu      sync.RWMutex
	aliases submission.Aliases
}

var _ ports.FieldProfile = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	aliases, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: strings.TrimSpace(path), aliases: aliases}, nil
}

func (s *Store) Aliases() submission.Aliases {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliases
}

// Reload re-reads the file. On error the previous aliases stay active.
func (s *Store) Reload() error {
	aliases, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.aliases = aliases
	s.mu.Unlock()
	return nil
}

// Watch reloads the profile whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are
// picked up too.
func (s *Store) Watch(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.path == "" {
		return nil
	}

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return errs.Wrap(err, "resolve field profile path")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create field profile watcher")
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return errs.Wrap(err, "watch field profile directory")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "infrastructure.fieldprofile"),
		slog.String("path", absPath),
	)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					logging.Warn(logCtx, "field profile reload failed, keeping previous aliases", slog.Any("err", errs.Loggable(err)))
					continue
				}
				logging.Info(logCtx, "field profile reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn(logCtx, "field profile watcher error", slog.Any("err", errs.Loggable(err)))
			}
		}
	}()
	return nil
}
