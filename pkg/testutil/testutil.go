// Package testutil provides VCF fixtures for vcf2parquet tests
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Scenario is a minimal VCFv4.2 file with two INFO definitions and one row
var Scenario = []string{
	"##fileformat=VCFv4.2",
	"##INFO=<ID=DP,Number=1,Type=Integer>",
	"##INFO=<ID=AF,Number=A,Type=Float>",
	"#CHROM\tPOS\tID",
	"1\t100\trs1",
}

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteVCF writes lines, each terminated by '\n', to dir/name
func WriteVCF(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(Join(lines)), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteGzipVCF writes lines as a gzip stream split into members of at most
// membersOf lines each, the way bgzip produces concatenated members
func WriteGzipVCF(t *testing.T, dir, name string, lines []string, membersOf int) string {
	t.Helper()
	if membersOf <= 0 {
		membersOf = len(lines) + 1
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // test fixture path
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	for start := 0; start < len(lines) || start == 0; start += membersOf {
		end := start + membersOf
		if end > len(lines) {
			end = len(lines)
		}
		zw := gzip.NewWriter(f)
		if _, err := zw.Write([]byte(Join(lines[start:end]))); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("close %s: %v", path, err)
		}
		if end == len(lines) {
			break
		}
	}
	return path
}

// Join renders lines as file content
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Generate builds a VCF with repeated contig keys and n body rows.
// Body rows start at index BodyOffset.
func Generate(n int) []string {
	lines := []string{
		"##fileformat=VCFv4.3",
		"##contig=<ID=1,length=248956422>",
		"##contig=<ID=2,length=242193529>",
		"##contig=<ID=3,length=198295559>",
		"##source=vcf2parquet-test",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL",
	}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("chr%d\t%d\trs%d\tA\tC,T\t%d", i%3+1, 10000+i*7, i, 30+i%40))
	}
	return lines
}

// BodyOffset is the index of the first body row in Generate's output
const BodyOffset = 6

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
