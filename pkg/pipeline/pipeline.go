// Package pipeline runs the dependency-file to JSON conversion.
//
// This package implements the complete load → parse → merge → render
// pipeline used by the CLI and the HTTP service. By centralizing this logic,
// both entry points produce byte-identical output for the same input.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: lex and parse every source into raw rules, in parallel
//  2. Merge: fold the per-source rules into one model, strictly in input order
//  3. Render: write the model as JSON (or as a DOT or SVG graph)
//
// Parsing is a pure function of a source's bytes, so its result can be
// cached by content hash. Merging is sequential because target and
// prerequisite order are defined by input order. If any source fails to
// parse, the error of the first failing source in input order is returned
// and nothing is rendered.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, sources, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(result.Output)
package pipeline

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/model"
	"github.com/matzehuels/dep2j/pkg/render"
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// DefaultFormat is the output format when none is given.
const DefaultFormat = FormatJSON

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// DefaultJobs returns the default parse parallelism.
func DefaultJobs() int {
	return runtime.GOMAXPROCS(0)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a conversion run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Parse options
	Jobs    int  `json:"jobs,omitempty"`    // Parallel parsers; 0 means GOMAXPROCS
	Refresh bool `json:"refresh,omitempty"` // Ignore cached parse results

	// Output options
	Format string `json:"format,omitempty"` // json, dot or svg
	Indent bool   `json:"indent,omitempty"` // Pretty-print JSON output

	// Graph options (dot and svg only)
	Detailed  bool   `json:"detailed,omitempty"`
	Direction string `json:"direction,omitempty"`
	NoLeaves  bool   `json:"no_leaves,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Model is the merged dependency model.
	Model *model.Model

	// Output is the rendered document in Format. JSON output has no
	// trailing newline.
	Output []byte

	// Format is the format of Output.
	Format string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks parse cache usage.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Sources    int
	Bytes      int
	Rules      int
	Targets    int
	ParseTime  time.Duration
	MergeTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo counts parse cache hits and misses.
type CacheInfo struct {
	Hits   int
	Misses int
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateDirection checks a graph rank direction. Empty means the default.
func ValidateDirection(dir string) error {
	if dir != "" && !render.ValidDirections[dir] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid direction: %q (must be one of: TB, LR, BT, RL)", dir)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateJobs(o.Jobs); err != nil {
		return err
	}
	if o.Jobs == 0 {
		o.Jobs = DefaultJobs()
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if err := ValidateDirection(o.Direction); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RenderOptions returns the graph options for dot and svg output.
func (o *Options) RenderOptions() render.Options {
	return render.Options{
		Detailed:  o.Detailed,
		Direction: o.Direction,
		NoLeaves:  o.NoLeaves,
	}
}

// String summarizes the options for debug logs.
func (o *Options) String() string {
	return fmt.Sprintf("format=%s jobs=%d indent=%t refresh=%t", o.Format, o.Jobs, o.Indent, o.Refresh)
}
