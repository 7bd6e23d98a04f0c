// Package main implements the reposmith CLI.
//
// reposmith clones a target repository and a set of source repositories,
// learns from the sources, asks a language model for improvements to the
// target and commits them to a new branch.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return a.exitCode
}

func newRootCmd(a *app) *cobra.Command {
	var f runFlags

	root := &cobra.Command{
		Use:   "reposmith",
		Short: "Improve a repository using what other repositories do well",
		Long: `reposmith clones a target repository and one or more source repositories,
synthesizes knowledge from the sources, generates improvements for the target
with a language model and commits them to a new branch of the target.

Credentials are read from ANTHROPIC_API_KEY and GITHUB_TOKEN.

Examples:
  # Improve a repository using two references
  reposmith --target https://github.com/acme/api \
    --source https://github.com/acme/billing \
    --source https://github.com/acme/auth

  # Restrict the run to two files and print JSON
  reposmith --target https://github.com/acme/api \
    --source https://github.com/acme/billing \
    --file cmd/api/main.go --file internal/server/server.go --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), f)
		},
	}

	flags := root.Flags()
	flags.StringVar(&f.target, "target", "", "address of the repository to improve")
	flags.StringArrayVar(&f.sources, "source", nil, "address of a source repository to learn from (repeatable)")
	flags.StringArrayVar(&f.files, "file", nil, "target-relative file to improve (repeatable, default: all)")
	flags.StringVar(&f.branch, "branch", pipeline.DefaultBranch, "branch to commit improvements to")
	flags.IntVar(&f.maxIterations, "max-iterations", pipeline.DefaultMaxIterations, "maximum number of model calls")
	flags.BoolVar(&f.noSafetyChecks, "no-safety-checks", false, "disable validation of generated improvements")
	flags.StringVar(&f.configPath, "config", "", "config file (default ~/.config/reposmith/config.yaml)")
	flags.BoolVar(&f.json, "json", false, "print the run result as JSON")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	_ = root.MarkFlagRequired("target")
	_ = root.MarkFlagRequired("source")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "reposmith %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", gitCommit)
	fmt.Fprintf(w, "  built:  %s\n", buildDate)
}
