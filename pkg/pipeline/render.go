package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/io"
	"github.com/matzehuels/dep2j/pkg/model"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/render"
)

// Render produces the output document for m in opts.Format.
func Render(ctx context.Context, m *model.Model, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := renderFormat(ctx, m, opts)
	if opts.Format == FormatJSON {
		observability.Pipeline().OnSerializeComplete(ctx, len(data), time.Since(start), err)
	}
	return data, err
}

func renderFormat(ctx context.Context, m *model.Model, opts Options) ([]byte, error) {
	switch opts.Format {
	case FormatJSON:
		if opts.Indent {
			return indentJSON(m)
		}
		return io.MarshalJSON(m)
	case FormatDOT:
		return []byte(render.ToDOT(m, opts.RenderOptions())), nil
	case FormatSVG:
		svg, err := render.RenderSVG(ctx, render.ToDOT(m, opts.RenderOptions()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return svg, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", opts.Format)
	}
}

// indentJSON renders pretty-printed JSON without the trailing newline.
func indentJSON(m *model.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := io.WriteJSON(m, &buf, io.Format{Indent: true}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
