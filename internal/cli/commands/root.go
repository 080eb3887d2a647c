package commands

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/halstore/internal/cli/ui"
	"github.com/conduit-lang/halstore/pkg/datastore"
	"github.com/conduit-lang/halstore/pkg/transport"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
	strategy   string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "halctl",
		Short: "Explore HAL hypermedia APIs through the halstore cache",
		Long: color.CyanString(`halctl - HAL hypermedia client

halctl reads model declarations from halstore.yaml and fetches resources through
the same identity cache and relationship resolution the halstore library uses.

Features:
  • Canonical URLs with sorted query parameters
  • Dot-delimited relationship includes (car.maker)
  • ETag revalidation and persistent snapshots`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: halstore.yaml in the working directory)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.strategy, "strategy", "", "override the cache strategy: none, etag or persistent")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewGetCommand(opts))
	rootCmd.AddCommand(NewListCommand(opts))
	rootCmd.AddCommand(NewRequestCommand(opts))
	rootCmd.AddCommand(NewModelsCommand(opts))
	rootCmd.AddCommand(NewCacheCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the halctl version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "halctl version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd.ErrOrStderr(), err, color.NoColor)
		return err
	}
	return nil
}

// reportError renders err with the ui helper matching its kind
func reportError(w io.Writer, err error, noColor bool) {
	var (
		unknown   *unknownModelError
		configErr *configError
		statusErr *transport.StatusError
	)

	switch {
	case errors.As(err, &unknown):
		fmt.Fprint(w, ui.UnknownModelError(unknown.modelType, unknown.suggestions, noColor))
	case errors.As(err, &configErr), errors.Is(err, datastore.ErrConfiguration):
		fmt.Fprint(w, ui.ConfigError(err.Error(), noColor))
	case errors.As(err, &statusErr), errors.Is(err, datastore.ErrNotModified):
		fmt.Fprint(w, ui.RequestError(err.Error(), noColor))
	default:
		errorColor := color.New(color.FgRed, color.Bold)
		if noColor {
			errorColor.DisableColor()
		}
		errorColor.Fprintf(w, "Error: %v\n", err)
	}
}
