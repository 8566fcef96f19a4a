package converter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// accepted input suffixes, matched case-sensitively
var inputSuffixes = []string{".vcf", ".vcf.gz"}

// validateInput checks that path names an existing regular .vcf or .vcf.gz
// file. The suffix is checked before the filesystem is consulted.
func validateInput(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, errors.New(errors.ErrorTypeInvalidInput, "input path is empty")
	}
	if !hasInputSuffix(path) {
		return nil, errors.Newf(errors.ErrorTypeInvalidInput, "input %s must end with .vcf or .vcf.gz", path).
			WithDetail("path", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrorTypeInvalidInput, "input file %s does not exist", path).
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidInput, "cannot stat input file").
			WithDetail("path", path)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Newf(errors.ErrorTypeInvalidInput, "input %s is not a regular file", path).
			WithDetail("path", path)
	}

	return info, nil
}

func hasInputSuffix(path string) bool {
	for _, suffix := range inputSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// validateStem checks that stem is usable as an output prefix: non-empty,
// not a directory path, and inside an existing directory
func validateStem(stem string) error {
	if stem == "" {
		return errors.New(errors.ErrorTypeInvalidInput, "output stem is empty")
	}
	if strings.HasSuffix(stem, string(os.PathSeparator)) || strings.HasSuffix(stem, "/") {
		return errors.Newf(errors.ErrorTypeInvalidInput, "output stem %s names a directory", stem).
			WithDetail("stem", stem)
	}

	dir := filepath.Dir(stem)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.Newf(errors.ErrorTypeInvalidInput, "output directory %s does not exist", dir).
			WithDetail("stem", stem)
	}
	return nil
}

// outputPaths appends the artifact extensions to stem
func outputPaths(stem, columnarExt string) (columnarPath, metadataPath string) {
	return stem + columnarExt, stem + MetadataSuffix
}
