package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heejin-dev/pv-data-collection/internal/common"
	"github.com/heejin-dev/pv-data-collection/internal/dataset"
	"github.com/heejin-dev/pv-data-collection/internal/dates"
)

var (
	// ErrNotFound is returned when no master table exists yet.
	ErrNotFound = errors.New("no master table at path")
)

const artifactPrefix = "south_pv_"

// Store is the persistence contract for raw window artifacts and the
// accumulated master table.
type Store interface {
	SaveArtifact(tag string, w dates.Window, body []byte) (string, error)
	LoadMaster() (*dataset.Table, error)
	SaveMaster(t *dataset.Table) error
	MasterPath() string
}

// FileStore keeps window artifacts in an output directory and the
// master table at a fixed CSV path. It assumes at most one concurrent
// writer per master table; serializing runs is the caller's job.
type FileStore struct {
	outputDir  string
	masterPath string

	// maxArtifacts caps how many raw window files are retained.
	// Oldest files are pruned first. <= 0 means unlimited.
	maxArtifacts int
}

// NewFileStore creates a FileStore rooted at outputDir, creating the
// directory (and the master path's parent) if needed.
func NewFileStore(outputDir, masterPath string, maxArtifacts int) (*FileStore, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if dir := filepath.Dir(masterPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create master dir: %w", err)
		}
	}
	return &FileStore{
		outputDir:    outputDir,
		masterPath:   masterPath,
		maxArtifacts: maxArtifacts,
	}, nil
}

// ArtifactName encodes the filter tag and window bounds into a
// filesystem-safe CSV filename.
func ArtifactName(tag string, w dates.Window) string {
	name := fmt.Sprintf("%s%s_%s-%s.csv", artifactPrefix, tag, dates.Compact(w.Start), dates.Compact(w.End))
	return common.SanitizeFilename(name)
}

// SaveArtifact writes one window's raw payload and enforces artifact
// retention. It returns the written path.
func (s *FileStore) SaveArtifact(tag string, w dates.Window, body []byte) (string, error) {
	path := filepath.Join(s.outputDir, ArtifactName(tag, w))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := s.pruneArtifacts(); err != nil {
		return path, fmt.Errorf("prune artifacts: %w", err)
	}
	return path, nil
}

// pruneArtifacts drops the oldest retained artifacts beyond the cap.
func (s *FileStore) pruneArtifacts() error {
	if s.maxArtifacts <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return err
	}

	type aged struct {
		path string
		mod  int64
	}
	var artifacts []aged
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), artifactPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, aged{
			path: filepath.Join(s.outputDir, e.Name()),
			mod:  info.ModTime().UnixNano(),
		})
	}
	if len(artifacts) <= s.maxArtifacts {
		return nil
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].mod < artifacts[j].mod })
	for _, a := range artifacts[:len(artifacts)-s.maxArtifacts] {
		if err := os.Remove(a.path); err != nil {
			return err
		}
	}
	return nil
}

// LoadMaster reads and parses the master table. ErrNotFound when the
// file does not exist yet.
func (s *FileStore) LoadMaster() (*dataset.Table, error) {
	f, err := os.Open(s.masterPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open master table: %w", err)
	}
	defer f.Close()

	table, err := dataset.ReadCSV(f, s.masterPath)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// SaveMaster persists the table as the new ground truth.
func (s *FileStore) SaveMaster(t *dataset.Table) error {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, t); err != nil {
		return fmt.Errorf("encode master table: %w", err)
	}
	if err := os.WriteFile(s.masterPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write master table: %w", err)
	}
	return nil
}

// MasterPath returns where the master table lives.
func (s *FileStore) MasterPath() string { return s.masterPath }
