// Package filewalk discovers files under a directory for a single upload
// session batch. Out of scope per this spec's Non-goals is anything about
// progress reporting or the CLI itself — this package only turns a
// directory tree into in-memory upload.File values.
package filewalk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jedisct1/draft-denis-xet/pkg/upload"
)

// Collect walks root and reads every regular file into memory as an
// upload.File, named by its path relative to root.
func Collect(root string) ([]upload.File, error) {
	var files []upload.File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("filewalk: reading %s: %w", path, err)
		}
		files = append(files, upload.File{Name: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filewalk: walking %s: %w", root, err)
	}

	return files, nil
}
