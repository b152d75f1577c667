package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dep2j/pkg/errors"
)

// RenderSVG lays out a dependency graph produced by ToDOT and returns it as
// SVG sized in pixels, so the drawing scales with the page it is embedded in.
// Failures are INTERNAL_ERROR because the DOT text is always generated here.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "start graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse dependency graph")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "lay out dependency graph")
	}
	return fitViewBox(buf.Bytes()), nil
}

var (
	// rootTagRe matches the document's <svg> element, not the DOCTYPE.
	rootTagRe = regexp.MustCompile(`<svg\b[^>]*>`)
	// sizeAttrRe matches the point-based width and height Graphviz writes.
	sizeAttrRe = regexp.MustCompile(`\s(?:width|height)="[^"]*"`)
	viewBoxRe  = regexp.MustCompile(`viewBox="([^"]*)"`)
)

// fitViewBox swaps the root element's point dimensions for pixel ones taken
// from its viewBox. Every other attribute, xlink namespaces included, is kept.
func fitViewBox(svg []byte) []byte {
	loc := rootTagRe.FindIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]

	m := viewBoxRe.FindSubmatch(tag)
	if m == nil {
		return svg
	}
	box := strings.Fields(string(m[1]))
	if len(box) != 4 {
		return svg
	}
	w, errW := strconv.ParseFloat(box[2], 64)
	h, errH := strconv.ParseFloat(box[3], 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return svg
	}

	var out bytes.Buffer
	out.Grow(len(svg))
	out.Write(svg[:loc[0]])
	fmt.Fprintf(&out, `<svg width="%.0f" height="%.0f"`, w, h)
	out.Write(sizeAttrRe.ReplaceAll(tag[len("<svg"):], nil))
	out.Write(svg[loc[1]:])
	return out.Bytes()
}
