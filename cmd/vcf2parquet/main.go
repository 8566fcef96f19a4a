package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/logger"
)

var version = "0.1.0"

func main() {
	root := newRootCommand()
	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vcf2parquet",
		Short: "vcf2parquet - streaming VCF to columnar converter",
		Long: `vcf2parquet converts a VCF file (plain or gzip/bgzip) into a columnar table of its
body rows and a JSON sidecar holding the ## metadata preamble.
Rows are streamed in fixed-size batches, so memory use does not grow with the input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid flags")
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vcf2parquet v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newConvertCommand())
	root.AddCommand(newInspectCommand())

	return root
}

// exactArgs is cobra.ExactArgs reporting a configuration error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.Newf(errors.ErrorTypeConfig, "%s expects %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}
