package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/model"
)

// ReadJSON decodes a dep2j document from r into a Model.
//
// The input must be a JSON array of objects with a "target" string and a
// "prerequisites" array of strings:
//
//	[{"target": "a.o", "prerequisites": ["a.c", "a.h"]}]
//
// Entries are merged the same way parsed rules are, so a hand-edited
// document with repeated targets or prerequisites is normalized. Targets
// keep document order.
//
// ReadJSON returns an INVALID_INPUT error if the JSON is malformed, has
// unknown fields, trailing data, or an entry without a target. ReadJSON does
// not close r.
func ReadJSON(r io.Reader) (*model.Model, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var entries []model.Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode")
	}
	if dec.More() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "decode: unexpected data after document")
	}
	for i, e := range entries {
		if e.Target == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "entry %d: missing target", i+1)
		}
	}
	return model.FromEntries(entries), nil
}

// ImportJSON reads a dep2j document from the file at path.
func ImportJSON(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
