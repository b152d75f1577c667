// Package render draws a merged dependency model as a Graphviz graph.
//
// # Overview
//
// The model is projected onto a directed graph: every target and every
// prerequisite becomes a node, and every target has one edge to each of its
// prerequisites. Nothing is computed beyond that projection; the graph keeps
// model order and may contain cycles if the input does.
//
// # Usage
//
// Convert a model to DOT, then render to SVG:
//
//	dot := render.ToDOT(m, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be rendered
// directly via [RenderSVG] or saved and processed with external Graphviz
// tools. Targets are drawn as rounded boxes; prerequisites that are never
// targets themselves (usually source files and headers) are drawn as
// grey ellipses.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is required.
package render
