// Package source loads named byte sources for the conversion pipeline.
//
// A source is a file path or standard input, designated by "-". Sources are
// read completely before parsing starts, in the order they were given.
package source

import (
	"context"
	"io"
	"os"

	"github.com/matzehuels/dep2j/pkg/errors"
)

// StdinName is the argument that designates standard input.
const StdinName = "-"

// StdinLabel is the name standard input is reported under.
const StdinLabel = "<stdin>"

// Source is one named input.
type Source struct {
	Name string
	Data []byte
}

// New creates a source from in-memory data.
func New(name string, data []byte) Source {
	return Source{Name: name, Data: data}
}

// Size returns the length of the source in bytes.
func (s Source) Size() int {
	return len(s.Data)
}

// Load reads every named source in order. "-" reads stdin; stdin is read
// once, and repeated "-" arguments share its contents. An empty names list
// reads stdin alone.
//
// Failures are IO_ERROR errors naming the source.
func Load(ctx context.Context, names []string, stdin io.Reader) ([]Source, error) {
	if len(names) == 0 {
		names = []string{StdinName}
	}

	var (
		stdinData []byte
		stdinRead bool
	)

	out := make([]Source, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if name == StdinName {
			if !stdinRead {
				data, err := ReadStdin(stdin)
				if err != nil {
					return nil, err
				}
				stdinData, stdinRead = data, true
			}
			out = append(out, Source{Name: StdinLabel, Data: stdinData})
			continue
		}

		src, err := ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// ReadFile loads the file at path as a source named by the path.
func ReadFile(path string) (Source, error) {
	if err := errors.ValidateSourceName(path); err != nil {
		return Source{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, errors.Wrap(errors.ErrCodeIO, err, "failed to read %q", path)
	}
	return Source{Name: path, Data: data}, nil
}

// ReadStdin reads r to the end.
func ReadStdin(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, errors.New(errors.ErrCodeIO, "failed to read stdin: no standard input")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "failed to read stdin")
	}
	return data, nil
}

// TotalSize returns the combined size of sources in bytes.
func TotalSize(sources []Source) int {
	n := 0
	for _, s := range sources {
		n += len(s.Data)
	}
	return n
}
