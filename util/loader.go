package util

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// ListImageFiles expands inputs into image file paths.
//
// Files are kept as given, whatever their extension, so a bad input is reported when it
// is loaded. Directories are read one level deep and contribute their supported image
// files in name order.
//
// Arguments:
//   - inputs: File and directory paths.
//
// Returns:
//   - []string: Image paths in input order.
//   - error: Error if an input does not exist or a directory cannot be read.
func ListImageFiles(inputs ...string) ([]string, error) {
	var paths []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", input)
		}
		if !info.IsDir() {
			paths = append(paths, input)
			continue
		}

		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read directory %s", input)
		}

		var found []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if _, ok := images.FormatFromPath(entry.Name()); ok {
				found = append(found, filepath.Join(input, entry.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
