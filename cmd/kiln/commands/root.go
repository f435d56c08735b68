// Package commands implements the CLI commands for the kiln asset pipeline.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
)

// CLI represents the command line interface for kiln.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, names []string, opts app.Options) error
	Watch(ctx context.Context, opts app.Options) error
	Clean(ctx context.Context, opts app.Options) error
	Tasks(ctx context.Context, w io.Writer, opts app.Options) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "Build, watch and live-reload front-end assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to kiln.yaml (default: search upward from the working directory)")
	flags.Bool("minify", false, "Minify styles and scripts")
	flags.Bool("no-minify", false, "Do not minify styles and scripts")
	flags.Bool("livereload-script", false, "Inject the live-reload client into copied pages")
	flags.Int("port", 0, "Live-reload port (default 35729)")
	flags.Bool("verbose", false, "Show debug logs and task progress")
	flags.Bool("json", false, "Write logs as JSON")
	rootCmd.MarkFlagsMutuallyExclusive("minify", "no-minify")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options reads the persistent flags into app.Options.
func options(cmd *cobra.Command) app.Options {
	flags := cmd.Flags()

	opts := app.Options{}
	opts.ConfigPath, _ = flags.GetString("config")
	opts.Port, _ = flags.GetInt("port")
	opts.Verbose, _ = flags.GetBool("verbose")
	opts.JSON, _ = flags.GetBool("json")

	switch {
	case flags.Changed("minify"):
		v, _ := flags.GetBool("minify")
		opts.Minify = &v
	case flags.Changed("no-minify"):
		v, _ := flags.GetBool("no-minify")
		v = !v
		opts.Minify = &v
	}
	if flags.Changed("livereload-script") {
		v, _ := flags.GetBool("livereload-script")
		opts.LiveReloadScript = &v
	}
	return opts
}
