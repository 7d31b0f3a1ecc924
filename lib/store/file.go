// Package store persists the run state: the story cache, the ledger of
// summarized URLs, the negative cache and keyword trends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"techup/lib/logger"
	"techup/lib/types"
)

// Load reads the JSON document at path into a T. A missing file yields def.
// A file that cannot be parsed also yields def, and is renamed aside so the
// next save does not silently overwrite it.
func Load[T any](path string, def T, log *logger.Logger) T {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("%s does not exist yet, starting empty", path)
		return def
	}
	if err != nil {
		log.Warning("Could not read %s, starting empty: %v", path, err)
		return def
	}

	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, aside); renameErr != nil {
			log.Warning("Corrupt %s (%v) and could not move it aside: %v", path, err, renameErr)
		} else {
			log.Warning("Corrupt %s (%v), moved to %s", path, err, aside)
		}
		return def
	}
	return doc
}

// Read parses the JSON document at path and leaves the file alone, whatever
// its state. ok is false when the file does not exist.
func Read[T any](path string) (doc T, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, true, nil
}

// Save writes doc as indented JSON. The file is replaced atomically, so a
// reader sees either the old or the new document.
func Save(path string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

type Paths struct {
	Cache    string
	Ledger   string
	Rejected string
	Trends   string
}

// FileStore keeps each document in its own JSON file.
type FileStore struct {
	paths Paths
	log   *logger.Logger
}

func NewFileStore(paths Paths, log *logger.Logger) *FileStore {
	return &FileStore{paths: paths, log: log}
}

func (s *FileStore) Load(ctx context.Context) (types.State, error) {
	state := types.State{
		Cache:    Load(s.paths.Cache, types.Cache{}, s.log),
		Ledger:   Load(s.paths.Ledger, types.NewLedger(), s.log),
		Rejected: Load(s.paths.Rejected, types.Rejected{}, s.log),
		Trends:   Load(s.paths.Trends, types.Trends{}, s.log),
	}
	fillDefaults(&state)
	return state, nil
}

// Save writes the cache before the ledger so that a URL in a saved ledger
// always has its story in a saved cache.
func (s *FileStore) Save(ctx context.Context, state types.State) error {
	docs := []struct {
		path string
		doc  any
	}{
		{s.paths.Cache, state.Cache},
		{s.paths.Ledger, state.Ledger},
		{s.paths.Rejected, state.Rejected},
		{s.paths.Trends, state.Trends},
	}
	for _, d := range docs {
		if err := Save(d.path, d.doc); err != nil {
			return err
		}
	}
	s.log.Info("Saved %d stories, %d ledger entries to %s", state.Cache.Len(), state.Ledger.Len(), filepath.Dir(s.paths.Cache))
	return nil
}

// Cache reads only the cache document, without the corrupt-file handling of
// Load. Read-only commands use it.
func (s *FileStore) Cache(ctx context.Context) (types.Cache, bool, error) {
	cache, ok, err := Read[types.Cache](s.paths.Cache)
	return cache, ok && cache != nil, err
}

func (s *FileStore) Trends(ctx context.Context) (types.Trends, error) {
	trends, _, err := Read[types.Trends](s.paths.Trends)
	if trends == nil {
		trends = types.Trends{}
	}
	return trends, err
}

func fillDefaults(state *types.State) {
	if state.Cache == nil {
		state.Cache = types.Cache{}
	}
	if state.Ledger == nil {
		state.Ledger = types.NewLedger()
	}
	if state.Rejected == nil {
		state.Rejected = types.Rejected{}
	}
	if state.Trends == nil {
		state.Trends = types.Trends{}
	}
}
