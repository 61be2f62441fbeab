package indexer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// Source provides the documents to index in a stable order.
type Source interface {
	Documents() ([]string, error)
	Open(path string) (io.ReadCloser, error)
}

// DirSource yields every regular file below Root in lexical walk order.
// Recorded paths are Root joined with the path relative to it.
type DirSource struct {
	Root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Validate checks that Root exists and is a directory.
func (s *DirSource) Validate() error {
	if s.Root == "" {
		return apperrors.New(apperrors.ErrInvalidSource, apperrors.ExitUsage, "source path is empty")
	}
	info, err := os.Stat(s.Root)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidSource, apperrors.ExitUsage, "%v", err)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrInvalidSource, apperrors.ExitUsage, "%s is not a directory", s.Root)
	}
	return nil
}

func (s *DirSource) Documents() ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var paths []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err == nil && info.Mode().IsRegular() {
				paths = append(paths, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.Root, err)
	}
	return paths, nil
}

func (s *DirSource) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	return f, nil
}
