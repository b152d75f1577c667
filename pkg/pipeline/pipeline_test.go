package pipeline

import (
	"testing"

	"github.com/matzehuels/dep2j/pkg/errors"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"JSON", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateDirection(t *testing.T) {
	tests := []struct {
		dir     string
		wantErr bool
	}{
		{"", false},
		{"TB", false},
		{"LR", false},
		{"lr", true},
		{"up", true},
	}

	for _, tt := range tests {
		err := ValidateDirection(tt.dir)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDirection(%q) error = %v, wantErr %v", tt.dir, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Jobs != DefaultJobs() {
		t.Errorf("Jobs = %d, want %d", opts.Jobs, DefaultJobs())
	}
	if opts.Format != FormatJSON {
		t.Errorf("Format = %q, want %q", opts.Format, FormatJSON)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	// Idempotent
	opts.Jobs = 3
	if err := opts.ValidateAndSetDefaults(); err != nil || opts.Jobs != 3 {
		t.Errorf("second call changed options: jobs %d, err %v", opts.Jobs, err)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative jobs", Options{Jobs: -1}},
		{"too many jobs", Options{Jobs: errors.MaxJobs + 1}},
		{"bad format", Options{Format: "yaml"}},
		{"bad direction", Options{Format: FormatDOT, Direction: "diagonal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want %v", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}
