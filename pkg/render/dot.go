package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/dep2j/pkg/model"
)

// Options configures graph generation.
type Options struct {
	// Detailed adds the prerequisite count to target labels.
	Detailed bool

	// Direction is the Graphviz rankdir: "TB" (default), "LR", "BT" or "RL".
	Direction string

	// NoLeaves drops prerequisites that are not targets themselves.
	NoLeaves bool
}

// ValidDirections is the set of accepted rank directions.
var ValidDirections = map[string]bool{
	"TB": true,
	"LR": true,
	"BT": true,
	"RL": true,
}

// ToDOT converts a model to Graphviz DOT format.
// The result can be rendered using [RenderSVG].
func ToDOT(m *model.Model, opts Options) string {
	dir := opts.Direction
	if !ValidDirections[dir] {
		dir = "TB"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	targets := make(map[string]bool, m.Len())
	m.Each(func(e model.Entry) bool {
		targets[e.Target] = true
		label := e.Target
		if opts.Detailed {
			label = fmt.Sprintf("%s\n%d prerequisites", e.Target, len(e.Prerequisites))
		}
		fmt.Fprintf(&buf, "  %s [label=%s];\n", quote(e.Target), quote(label))
		return true
	})

	if !opts.NoLeaves {
		leaves := make(map[string]bool)
		m.Each(func(e model.Entry) bool {
			for _, p := range e.Prerequisites {
				if targets[p] || leaves[p] {
					continue
				}
				leaves[p] = true
				fmt.Fprintf(&buf, "  %s [shape=ellipse, style=filled, fillcolor=lightgrey];\n", quote(p))
			}
			return true
		})
	}

	buf.WriteString("\n")
	m.Each(func(e model.Entry) bool {
		for _, p := range e.Prerequisites {
			if opts.NoLeaves && !targets[p] {
				continue
			}
			fmt.Fprintf(&buf, "  %s -> %s;\n", quote(e.Target), quote(p))
		}
		return true
	})

	buf.WriteString("}\n")
	return buf.String()
}

// quote returns s as a DOT double-quoted ID. Only '"' and '\' need escaping;
// newlines become centered line breaks.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
