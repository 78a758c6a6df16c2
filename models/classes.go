// Package models - Label lists for detection model outputs.
package models

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// UnknownLabel is substituted when a class index has no entry in the label list.
const UnknownLabel = "unknown"

// Labels is the ordered class list of a model; index i names class i.
type Labels []string

// WasteLabels is the class list of the waste-sorting model, in training order.
var WasteLabels = Labels{
	"biodegradable",
	"cardboard",
	"glass",
	"metal",
	"paper",
	"plastic",
}

// Name returns the label for a class index, or UnknownLabel when idx is out of range.
func (l Labels) Name(idx int) string {
	if idx < 0 || idx >= len(l) {
		return UnknownLabel
	}
	return l[idx]
}

// Clone returns a copy that shares no backing storage with l.
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	copy(out, l)
	return out
}

// ReadLabels reads one label per line. Surrounding whitespace is trimmed and blank lines
// are skipped.
//
// Arguments:
//   - r: The reader holding the label file contents.
//
// Returns:
//   - Labels: The labels in file order.
//   - error: An error if reading fails or no label was found.
func ReadLabels(r io.Reader) (Labels, error) {
	var labels Labels
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading labels")
	}
	if len(labels) == 0 {
		return nil, errors.New("label list is empty")
	}
	return labels, nil
}

// LoadLabels reads a label file from disk.
//
// Arguments:
//   - path: The path to a text file with one label per line.
//
// Returns:
//   - Labels: The labels in file order.
//   - error: An error if the file cannot be opened or parsed.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening label file %s", path)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, errors.Wrapf(err, "label file %s", path)
	}
	return labels, nil
}
