package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/vcf2parquet/pkg/config"
	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/vcf2parquet/pkg/publish"
	"github.com/ajitpratap0/vcf2parquet/pkg/testutil"
)

const scenarioSidecar = `{
  "fileformat": [
    "VCFv4.2"
  ],
  "INFO": [
    {
      "ID": "DP",
      "Number": "1",
      "Type": "Integer"
    },
    {
      "ID": "AF",
      "Number": "A",
      "Type": "Float"
    }
  ]
}
`

func newTestConverter(t *testing.T, mutate func(*config.Config), opts ...Option) *Converter {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func readTable(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	r, err := columnar.Open(path)
	require.NoError(t, err)
	defer r.Close()

	rows, err := columnar.ReadRows(r, 0)
	require.NoError(t, err)
	return r.Columns(), rows
}

func TestConvertScenario(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "sample.vcf", testutil.Scenario)
	stem := filepath.Join(dir, "out", "sample")
	require.NoError(t, os.Mkdir(filepath.Dir(stem), 0o750))

	c := newTestConverter(t, nil)
	result, err := c.Convert(context.Background(), input, stem)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, result.Status)
	assert.Equal(t, StateSucceeded, c.State())
	assert.Equal(t, stem+".parquet", result.ColumnarPath)
	assert.Equal(t, stem+MetadataSuffix, result.MetadataPath)
	assert.Equal(t, int64(1), result.RowCount)
	assert.Equal(t, []string{"CHROM", "POS", "ID"}, result.Columns)
	assert.Equal(t, 2, result.MetadataKeys)
	assert.Equal(t, 3, result.MetadataEntries)
	assert.NotEmpty(t, result.RunID)
	assert.Positive(t, result.ColumnarBytes)
	assert.Positive(t, result.MetadataBytes)

	sidecar, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, scenarioSidecar, string(sidecar))

	columns, rows := readTable(t, result.ColumnarPath)
	assert.Equal(t, []string{"CHROM", "POS", "ID"}, columns)
	assert.Equal(t, [][]string{{"1", "100", "rs1"}}, rows)
}

func TestConvertFormats(t *testing.T) {
	for _, format := range []string{"parquet", "arrow", "avro"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			lines := testutil.Generate(42)
			input := testutil.WriteVCF(t, dir, "gen.vcf", lines)

			c := newTestConverter(t, func(cfg *config.Config) {
				cfg.Format = format
				cfg.ChunkSize = 8
			})
			result, err := c.Convert(context.Background(), input, filepath.Join(dir, "gen"))
			require.NoError(t, err)

			info := columnar.GetFormatInfo(columnar.Format(format))
			assert.Equal(t, filepath.Join(dir, "gen")+info.FileExtension, result.ColumnarPath)
			assert.Equal(t, int64(42), result.RowCount)
			assert.Equal(t, int64(6), result.Batches)

			_, rows := readTable(t, result.ColumnarPath)
			require.Len(t, rows, 42)
			for i, row := range rows {
				assert.Equal(t, strings.Split(lines[testutil.BodyOffset+i], "\t"), row)
			}
		})
	}
}

func TestConvertRowCountMatchesBodyLines(t *testing.T) {
	for _, n := range []int{0, 1, 499, 500, 501, 1234} {
		dir := t.TempDir()
		input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(n))

		result, err := newTestConverter(t, nil).Convert(context.Background(), input, filepath.Join(dir, "gen"))
		require.NoError(t, err)
		assert.Equal(t, int64(n), result.RowCount, "rows=%d", n)
	}
}

func TestConvertPreservesDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(3))

	result, err := newTestConverter(t, nil).Convert(context.Background(), input, filepath.Join(dir, "gen"))
	require.NoError(t, err)

	sidecar, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	body := string(sidecar)

	assert.Equal(t, 1, strings.Count(body, `"contig"`))
	first := strings.Index(body, `"248956422"`)
	second := strings.Index(body, `"242193529"`)
	third := strings.Index(body, `"198295559"`)
	assert.True(t, first > 0 && first < second && second < third, "contigs out of order:\n%s", body)
}

func TestConvertZeroRows(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "empty.vcf", testutil.Scenario[:4])

	result, err := newTestConverter(t, nil).Convert(context.Background(), input, filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.RowCount)

	columns, rows := readTable(t, result.ColumnarPath)
	assert.Equal(t, []string{"CHROM", "POS", "ID"}, columns)
	assert.Empty(t, rows)

	sidecar, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, scenarioSidecar, string(sidecar))
}

func TestConvertChunkSizeDoesNotChangeContent(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(777))

	small := newTestConverter(t, func(cfg *config.Config) { cfg.ChunkSize = 1 })
	resSmall, err := small.Convert(context.Background(), input, filepath.Join(dir, "small"))
	require.NoError(t, err)

	large := newTestConverter(t, func(cfg *config.Config) { cfg.ChunkSize = 10000 })
	resLarge, err := large.Convert(context.Background(), input, filepath.Join(dir, "large"))
	require.NoError(t, err)

	assert.Equal(t, int64(777), resSmall.Batches)
	assert.Equal(t, int64(1), resLarge.Batches)

	_, rowsSmall := readTable(t, resSmall.ColumnarPath)
	_, rowsLarge := readTable(t, resLarge.ColumnarPath)
	assert.Equal(t, rowsLarge, rowsSmall)
}

func TestConvertIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(25))
	stem := filepath.Join(dir, "gen")
	c := newTestConverter(t, nil)

	first, err := c.Convert(context.Background(), input, stem)
	require.NoError(t, err)
	sidecar1, err := os.ReadFile(first.MetadataPath)
	require.NoError(t, err)
	_, rows1 := readTable(t, first.ColumnarPath)

	second, err := c.Convert(context.Background(), input, stem)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	sidecar2, err := os.ReadFile(second.MetadataPath)
	require.NoError(t, err)
	_, rows2 := readTable(t, second.ColumnarPath)

	assert.Equal(t, sidecar1, sidecar2)
	assert.Equal(t, rows1, rows2)
}

func TestConvertGzipInput(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteGzipVCF(t, dir, "sample.vcf.gz", testutil.Scenario, 2)

	result, err := newTestConverter(t, nil).Convert(context.Background(), path, filepath.Join(dir, "sample"))
	require.NoError(t, err)

	_, rows := readTable(t, result.ColumnarPath)
	assert.Equal(t, [][]string{{"1", "100", "rs1"}}, rows)
}

func assertNoArtifacts(t *testing.T, dir string, keep ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, keep, names)
}

func TestConvertSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "bad.vcf", []string{
		"##fileformat=VCFv4.2",
		"##source=test",
		"##reference=GRCh38",
		"##phasing=none",
		"#CHROM\tPOS\tID",
		"1\t100\trs1",
		"1\t200",
		"1\t300\trs3",
	})

	c := newTestConverter(t, func(cfg *config.Config) { cfg.ChunkSize = 1 })
	result, err := c.Convert(context.Background(), input, filepath.Join(dir, "bad"))
	require.Error(t, err)

	var sv *errors.SchemaViolationError
	require.True(t, errors.As(err, &sv), "got %v", err)
	assert.Equal(t, 7, sv.Line)
	assert.Equal(t, 2, sv.Observed)
	assert.Equal(t, 3, sv.Expected)

	assert.Equal(t, StateFailed, result.Status)
	assert.Equal(t, errors.ErrorTypeSchemaViolation, result.FailureKind)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, errors.ErrorTypeSchemaViolation, c.Failure())
	assert.Equal(t, 4, errors.ExitCode(err))

	assertNoArtifacts(t, dir, "bad.vcf")
}

func TestConvertMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"missing separator", []string{"##fileformat=VCFv4.2", "##broken", "#CHROM\tPOS", "1\t2"}},
		{"no header", []string{"##fileformat=VCFv4.2"}},
		{"second header", []string{"#CHROM\tPOS", "1\t2", "#CHROM\tPOS"}},
		{"data before header", []string{"##fileformat=VCFv4.2", "1\t2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := testutil.WriteVCF(t, dir, "in.vcf", tt.lines)

			result, err := newTestConverter(t, nil).Convert(context.Background(), input, filepath.Join(dir, "out"))
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeMalformedInput, errors.TypeOf(err))
			assert.Equal(t, errors.ErrorTypeMalformedInput, result.FailureKind)
			assertNoArtifacts(t, dir, "in.vcf")
		})
	}
}

func TestConvertRecordPolicy(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "in.vcf", []string{"##fileformat=VCFv4.2", "##broken", "#CHROM\tPOS", "1\t2"})

	c := newTestConverter(t, func(cfg *config.Config) { cfg.MissingSeparatorPolicy = config.PolicyRecord })
	result, err := c.Convert(context.Background(), input, filepath.Join(dir, "out"))
	require.NoError(t, err)

	sidecar, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fileformat":["VCFv4.2"],"broken":[]}`, string(sidecar))
}

func TestConvertSidecarKeepsMarkup(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "in.vcf", []string{
		"##fileformat=VCFv4.2",
		`##INFO=<ID=AF,Number=A,Type=Float,Description="AF < 0.1 & more">`,
		"##ALT=<DEL>&x",
		"#CHROM\tPOS",
		"1\t2",
	})

	result, err := newTestConverter(t, nil).Convert(context.Background(), input, filepath.Join(dir, "out"))
	require.NoError(t, err)

	sidecar, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), `"Description": "AF < 0.1 & more"`)
	assert.Contains(t, string(sidecar), `"<DEL>&x"`)
	assert.NotContains(t, string(sidecar), `\u003c`)
	assert.NotContains(t, string(sidecar), `\u0026`)
}

func TestConvertInvalidInput(t *testing.T) {
	dir := t.TempDir()
	upper := testutil.WriteVCF(t, dir, "upper.VCF", testutil.Scenario)
	txt := testutil.WriteVCF(t, dir, "notes.txt", testutil.Scenario)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.vcf"), 0o750))

	tests := []struct {
		name  string
		input string
		stem  string
	}{
		{"empty path", "", filepath.Join(dir, "out")},
		{"missing file", filepath.Join(dir, "absent.vcf"), filepath.Join(dir, "out")},
		{"uppercase extension", upper, filepath.Join(dir, "out")},
		{"wrong extension", txt, filepath.Join(dir, "out")},
		{"directory", filepath.Join(dir, "folder.vcf"), filepath.Join(dir, "out")},
		{"empty stem", filepath.Join(dir, "absent.vcf"), ""},
		{"stem in missing directory", upper, filepath.Join(dir, "nowhere", "out")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(t, nil)
			result, err := c.Convert(context.Background(), tt.input, tt.stem)
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeInvalidInput, errors.TypeOf(err))
			assert.Equal(t, StateFailed, result.Status)
			assert.Equal(t, 2, errors.ExitCode(err))
		})
	}

	assertNoArtifacts(t, dir, "upper.VCF", "notes.txt", "folder.vcf")
}

func TestValidateInputChecksSuffixFirst(t *testing.T) {
	dir := t.TempDir()

	// a missing file with the wrong suffix is rejected for its name
	_, err := validateInput(filepath.Join(dir, "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end with .vcf or .vcf.gz")

	_, err = validateInput(filepath.Join(dir, "absent.VCF.GZ"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end with .vcf or .vcf.gz")

	_, err = validateInput(filepath.Join(dir, "absent.vcf.gz"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	path := testutil.WriteVCF(t, dir, "present.vcf", testutil.Scenario)
	info, err := validateInput(path)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}

func TestConvertCanceled(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestConverter(t, nil)
	result, err := c.Convert(ctx, input, filepath.Join(dir, "gen"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeCanceled, errors.TypeOf(err))
	assert.Equal(t, errors.ErrorTypeCanceled, result.FailureKind)
	assert.Equal(t, 130, errors.ExitCode(err))

	assertNoArtifacts(t, dir, "gen.vcf")
}

func TestConvertKeepsExistingOutputsOnFailure(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "in.vcf", []string{"#CHROM\tPOS", "1"})
	stem := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(stem+".parquet", []byte("previous"), 0o600))

	_, err := newTestConverter(t, nil).Convert(context.Background(), input, stem)
	require.Error(t, err)

	got, err := os.ReadFile(stem + ".parquet")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	assertNoArtifacts(t, dir, "in.vcf", "out.parquet")
}

func TestConvertStateTransitions(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "sample.vcf", testutil.Scenario)

	var (
		mu   sync.Mutex
		seen []State
	)
	hook := func(tr Transition) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tr.To)
	}

	c := newTestConverter(t, nil, WithStateHook(hook))
	assert.Equal(t, StateIdle, c.State())

	_, err := c.Convert(context.Background(), input, filepath.Join(dir, "sample"))
	require.NoError(t, err)
	assert.Equal(t, []State{StateValidatingInput, StateStreamingConversion, StateFinalizing, StateSucceeded}, seen)

	seen = nil
	_, err = c.Convert(context.Background(), filepath.Join(dir, "missing.vcf"), filepath.Join(dir, "sample"))
	require.Error(t, err)
	assert.Equal(t, []State{StateValidatingInput, StateFailed}, seen)
}

func TestConvertRecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "gen.vcf", testutil.Generate(10))
	metricsFile := filepath.Join(dir, "run.prom")

	c := newTestConverter(t, func(cfg *config.Config) {
		cfg.ChunkSize = 4
		cfg.Observability.MetricsFile = metricsFile
	})
	_, err := c.Convert(context.Background(), input, filepath.Join(dir, "gen"))
	require.NoError(t, err)

	n, err := promtestutil.GatherAndCount(c.Collector().Registry(), "vcf2parquet_batches_written_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	text, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), `vcf2parquet_rows_written_total{format="parquet"} 10`)
	assert.Contains(t, string(text), `vcf2parquet_conversions_total{format="parquet",status="succeeded"} 1`)
}

func TestConvertPublishes(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteVCF(t, dir, "sample.vcf", testutil.Scenario)
	dest := filepath.Join(t.TempDir(), "bucket")

	p, err := publish.New(context.Background(), "file://"+filepath.ToSlash(dest), publish.Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer p.Close()

	result, err := newTestConverter(t, nil, WithPublisher(p)).Convert(context.Background(), input, filepath.Join(dir, "sample"))
	require.NoError(t, err)
	require.Len(t, result.Published, 2)

	sidecar, err := os.ReadFile(filepath.Join(dest, "sample"+MetadataSuffix))
	require.NoError(t, err)
	assert.Equal(t, scenarioSidecar, string(sidecar))

	_, rows := readTable(t, filepath.Join(dest, "sample.parquet"))
	assert.Equal(t, [][]string{{"1", "100", "rs1"}}, rows)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ChunkSize = 0
	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "streaming_conversion", StateStreamingConversion.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateFinalizing.Terminal())
	assert.True(t, canTransition(StateFinalizing, StateFailed))
	assert.False(t, canTransition(StateIdle, StateSucceeded))
}
