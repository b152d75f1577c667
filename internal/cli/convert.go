package cli

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dep2j/pkg/config"
	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/io"
	"github.com/matzehuels/dep2j/pkg/pipeline"
	"github.com/matzehuels/dep2j/pkg/source"
)

// convertOpts holds the command-line flags for conversion.
type convertOpts struct {
	output string
	indent bool
	jobs   int
	cache  cacheFlags
}

// convertCommand creates the root command, which converts dependency files
// to JSON.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   appName + " [flags] [file...]",
		Short: "Convert Makefile dependency files to JSON",
		Long: `dep2j converts Makefile dependency rules, as written by "gcc -MD" and
similar compilers, into a JSON array of {"target", "prerequisites"} objects.

Files are read in the order given; "-" reads standard input, and no files
reads standard input alone. Rules for the same target are merged: the
target keeps the position of its first appearance and its prerequisites are
the ordered union of all its rules.

An input file named like a subcommand (render, serve, cache, completion)
must be given as a path, for example "./render".`,
		Example: `  gcc -MD -c main.c && dep2j main.d
  dep2j -o deps.json build/*.d
  cat *.d | dep2j --indent
  dep2j ./render`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && c.stdinIsTerminal() {
				return cmd.Help()
			}
			opts.resolve(cmd, c.settings())
			return c.runConvert(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the document to `file` instead of stdout")
	cmd.Flags().BoolVar(&opts.indent, "indent", false, "pretty-print the JSON document")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse up to `n` files in parallel (default GOMAXPROCS)")
	opts.cache.register(cmd)

	return cmd
}

// resolve fills unset flags from the configuration.
func (o *convertOpts) resolve(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("jobs") {
		o.jobs = cfg.Jobs
	}
	if !cmd.Flags().Changed("indent") {
		o.indent = cfg.Indent
	}
	o.cache.resolve(cmd, cfg)
}

func (c *CLI) runConvert(ctx context.Context, args []string, opts convertOpts) error {
	logger := loggerFromContext(ctx)

	sources, err := source.Load(ctx, args, c.Stdin)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, sources, pipeline.Options{
		Jobs:    opts.jobs,
		Refresh: opts.cache.refresh,
		Format:  pipeline.FormatJSON,
		Indent:  opts.indent,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	prog.done("Converted " + plural(result.Stats.Sources, "source"))

	doc := append(result.Output, '\n')
	if opts.output == "" {
		if _, err := c.Stdout.Write(doc); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write stdout")
		}
		return nil
	}

	if err := io.WriteFile(opts.output, doc); err != nil {
		return err
	}
	printSuccess("Wrote %s", plural(result.Stats.Targets, "target"))
	printFile(opts.output)
	printStats(result.Stats.Sources, result.Stats.Targets, result.CacheInfo.Hits)
	return nil
}

// stdinIsTerminal reports whether Stdin is an interactive terminal.
func (c *CLI) stdinIsTerminal() bool {
	f, ok := c.Stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
