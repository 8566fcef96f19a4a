package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/formats/columnar"
)

func newInspectCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print the columns and first rows of a columnar artifact",
		Long: `Inspect opens a .parquet, .arrow or .avro artifact written by convert and prints
its columns followed by the first rows as tab-separated text, which makes it easy
to compare against the body lines of the source VCF.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], rows)
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to print (0 prints every row)")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, limit int) (err error) {
	r, err := columnar.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeIO, "failed to close artifact").WithDetail("path", path)
		}
	}()

	rows, err := columnar.ReadRows(r, limit)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "format: %s\n", r.Format())
	fmt.Fprintf(errOut, "columns: %d\n", len(r.Columns()))
	if n := r.NumRows(); n >= 0 {
		fmt.Fprintf(errOut, "rows: %s\n", humanize.Comma(n))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%s\n", strings.Join(r.Columns(), "\t"))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
	return nil
}
