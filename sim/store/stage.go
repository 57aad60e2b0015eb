package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Stage is a scratch directory next to an output directory. A run renders
// every file into Dir and calls Commit once nothing else can fail, so a
// failed run leaves the output directory untouched.
type Stage struct {
	Dir    string
	target string
}

// NewStage creates a staging directory beside target. The parent of target
// is created if needed; target itself is not.
func NewStage(target string) (*Stage, error) {
	target = filepath.Clean(target)
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating output parent dir: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "."+filepath.Base(target)+"-staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	return &Stage{Dir: dir, target: target}, nil
}

// Commit moves every staged entry into the target directory, replacing
// entries of the same name from an earlier run. Staging and target share a
// parent, so each move is a rename within one filesystem.
func (s *Stage) Commit() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("reading staging dir: %w", err)
	}
	if err := os.MkdirAll(s.target, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, e := range entries {
		dst := filepath.Join(s.target, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("replacing %s: %w", dst, err)
		}
		if err := os.Rename(filepath.Join(s.Dir, e.Name()), dst); err != nil {
			return fmt.Errorf("publishing %s: %w", dst, err)
		}
	}
	logrus.Debugf("published %d entries from %s to %s", len(entries), s.Dir, s.target)
	return os.Remove(s.Dir)
}

// Discard removes the staging directory and anything left in it. It is safe
// to call after Commit.
func (s *Stage) Discard() {
	if err := os.RemoveAll(s.Dir); err != nil {
		logrus.Warnf("removing staging dir %s: %v", s.Dir, err)
	}
}
