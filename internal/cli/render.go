package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dep2j/pkg/depfile"
	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/io"
	"github.com/matzehuels/dep2j/pkg/model"
	"github.com/matzehuels/dep2j/pkg/pipeline"
	"github.com/matzehuels/dep2j/pkg/source"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string
	format    string
	fromJSON  bool
	detailed  bool
	direction string
	noLeaves  bool
	jobs      int
	cache     cacheFlags
}

// renderCommand creates the render command, which draws the merged rules
// as a graph.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: pipeline.FormatSVG}

	cmd := &cobra.Command{
		Use:   "render [file...]",
		Short: "Render merged dependency rules as a DOT or SVG graph",
		Long: `Render merges dependency files exactly like the root command and writes
the result as a Graphviz graph: one node per target, one edge per
prerequisite, in input order.

With --from-json the inputs are JSON documents previously written by dep2j.
Without -o the output file is named after the first input, or written to
stdout when reading standard input.`,
		Example: `  dep2j render build/main.d
  dep2j render -f dot --no-leaves -o deps.dot build/*.d
  dep2j render --from-json deps.json --direction TB`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != pipeline.FormatDOT && opts.format != pipeline.FormatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be dot or svg)", opts.format)
			}
			if err := pipeline.ValidateDirection(opts.direction); err != nil {
				return err
			}
			cfg := c.settings()
			if !cmd.Flags().Changed("jobs") {
				opts.jobs = cfg.Jobs
			}
			opts.cache.resolve(cmd, cfg)
			return c.runRender(cmd.Context(), args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output `file` (\"-\" for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg or dot")
	cmd.Flags().BoolVar(&opts.fromJSON, "from-json", false, "inputs are dep2j JSON documents")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label targets with their prerequisite count")
	cmd.Flags().StringVar(&opts.direction, "direction", "", "rank direction: TB (default), LR, BT, RL")
	cmd.Flags().BoolVar(&opts.noLeaves, "no-leaves", false, "omit prerequisites that are not targets themselves")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse up to `n` files in parallel")
	opts.cache.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, args []string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	popts := pipeline.Options{
		Jobs:      opts.jobs,
		Refresh:   opts.cache.refresh,
		Format:    opts.format,
		Detailed:  opts.detailed,
		Direction: opts.direction,
		NoLeaves:  opts.noLeaves,
		Logger:    logger,
	}

	var (
		data    []byte
		targets int
		err     error
	)
	if opts.fromJSON {
		data, targets, err = c.renderJSONDocuments(ctx, args, popts)
	} else {
		data, targets, err = c.renderDepfiles(ctx, args, popts, opts.cache)
	}
	if err != nil {
		return err
	}
	prog.done("Rendered " + plural(targets, "target"))

	path := outputPath(opts.output, args, opts.format)
	if path == "" {
		if _, err := c.Stdout.Write(data); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write stdout")
		}
		return nil
	}
	if err := io.WriteFile(path, data); err != nil {
		return err
	}
	printSuccess("Rendered %s", plural(targets, "target"))
	printFile(path)
	return nil
}

func (c *CLI) renderDepfiles(ctx context.Context, args []string, opts pipeline.Options, cf cacheFlags) ([]byte, int, error) {
	sources, err := source.Load(ctx, args, c.Stdin)
	if err != nil {
		return nil, 0, err
	}
	runner, err := c.newRunner(ctx, cf)
	if err != nil {
		return nil, 0, err
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, sources, opts)
	if err != nil {
		return nil, 0, err
	}
	return result.Output, result.Stats.Targets, nil
}

func (c *CLI) renderJSONDocuments(ctx context.Context, args []string, opts pipeline.Options) ([]byte, int, error) {
	m, err := c.loadJSONDocuments(ctx, args)
	if err != nil {
		return nil, 0, err
	}
	data, err := pipeline.Render(ctx, m, opts)
	if err != nil {
		return nil, 0, err
	}
	return data, m.Len(), nil
}

// loadJSONDocuments reads JSON documents in order and merges them as if
// each entry were one rule.
func (c *CLI) loadJSONDocuments(ctx context.Context, args []string) (*model.Model, error) {
	sources, err := source.Load(ctx, args, c.Stdin)
	if err != nil {
		return nil, err
	}

	b := model.NewBuilder()
	for _, src := range sources {
		m, err := io.ReadJSON(bytes.NewReader(src.Data))
		if err != nil {
			return nil, errors.New(errors.GetCode(err), "%s: %s", src.Name, errors.UserMessage(err))
		}
		m.Each(func(e model.Entry) bool {
			b.Add(depfile.RawRule{Target: e.Target, Prerequisites: e.Prerequisites})
			return true
		})
	}
	return b.Build(), nil
}

// outputPath picks the destination: the -o flag, or a file named after the
// first input. Empty means stdout.
func outputPath(output string, args []string, format string) string {
	switch {
	case output == source.StdinName:
		return ""
	case output != "":
		return output
	case len(args) == 0 || args[0] == source.StdinName:
		return ""
	}
	base := filepath.Base(args[0])
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
