// Package io reads and writes the dep2j JSON document.
//
// # JSON Format
//
// The document is a single array with one object per target, in the order
// targets first appeared in the input:
//
//	[
//	  {"target": "main.o", "prerequisites": ["main.c", "file1.h", "file2.h"]},
//	  {"target": "file1.o", "prerequisites": ["file1.c", "file1.h"]}
//	]
//
// Each object has exactly two keys. "prerequisites" is always an array,
// never null, and holds unique names in first-seen order. An input without
// rules produces "[]".
//
// # Export
//
// [MarshalJSON] returns the compact document without a trailing newline.
// [WriteJSON] writes it to any io.Writer with a newline appended, and
// [ExportJSON] writes it to a file atomically:
//
//	if err := io.ExportJSON(m, "deps.json", io.Format{}); err != nil {
//	    log.Fatal(err)
//	}
//
// Strings are escaped per RFC 8259. Names that are not valid UTF-8 are
// reported as ENCODING_ERROR rather than replaced.
//
// # Import
//
// [ReadJSON] and [ImportJSON] decode a previously written document back into
// a [model.Model], which is how the render command accepts JSON input.
//
// [model.Model]: github.com/matzehuels/dep2j/pkg/model.Model
package io
