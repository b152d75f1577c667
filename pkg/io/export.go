package io

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/model"
)

// Format controls the layout of written documents.
type Format struct {
	// Indent pretty-prints the array with two-space indentation.
	Indent bool
}

// MarshalJSON renders m as a compact JSON array of {target, prerequisites}
// objects in model order. The result has no trailing newline and does not
// escape HTML characters. An empty model yields "[]".
//
// Names that are not valid UTF-8 cannot be represented as JSON text; they
// produce an ENCODING_ERROR instead of being replaced.
func MarshalJSON(m *model.Model) ([]byte, error) {
	return marshal(m, Format{})
}

// WriteJSON writes the document for m to w, followed by a newline.
func WriteJSON(m *model.Model, w io.Writer, f Format) error {
	data, err := marshal(m, f)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write output")
	}
	return nil
}

// ExportJSON writes the document for m to path. The file is written to a
// temporary sibling first and renamed into place, so a failed run never
// leaves a truncated file behind.
func ExportJSON(m *model.Model, path string, f Format) error {
	if err := checkPath(path); err != nil {
		return err
	}
	data, err := marshal(m, f)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

// WriteFile atomically replaces the file at path with data. The destination
// is either fully written or left untouched.
func WriteFile(path string, data []byte) error {
	if err := checkPath(path); err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func checkPath(path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrCodeInvalidPath, "output path is empty")
	}
	return nil
}

func marshal(m *model.Model, f Format) ([]byte, error) {
	entries := m.Entries()
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// validateEntries rejects names that encoding/json would silently repair.
// Offsets are relative to the offending name; the position has no Source
// because the name is not tied to an input file at this stage.
func validateEntries(entries []model.Entry) error {
	for _, e := range entries {
		target := strconv.Quote(e.Target)
		if off := invalidUTF8(e.Target); off >= 0 {
			return errors.Encoding(errors.Position{Offset: off}, "target %s is not valid UTF-8", target)
		}
		for i, p := range e.Prerequisites {
			if off := invalidUTF8(p); off >= 0 {
				return errors.Encoding(errors.Position{Offset: off},
					"target %s: prerequisite %d (%s) is not valid UTF-8", target, i+1, strconv.Quote(p))
			}
		}
	}
	return nil
}

// invalidUTF8 returns the byte offset of the first invalid sequence in s, or -1.
func invalidUTF8(s string) int {
	if utf8.ValidString(s) {
		return -1
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "chmod %s", path)
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "rename %s", path)
	}
	return nil
}
