// Package vcf reads variant-call text files as a stream of classified lines.
//
// A VCF file has three regions, recognized by their line prefix:
//
//	##fileformat=VCFv4.2                       metadata (preamble)
//	##INFO=<ID=DP,Number=1,Type=Integer>       metadata, tag-list value
//	#CHROM	POS	ID	REF	ALT                    header (exactly one)
//	1	100	rs1	A	G                          body rows
//
// LineSource turns a plain or gzip/bgzip byte stream into lines, Classify
// tags every line, Accumulator folds the preamble into an ordered multimap
// Document, ParseHeader resolves the column names, and Reader ties them
// together so that callers only see a Document, a Header and validated rows.
//
// Tag-list values are split on commas outside double quotes. Nested angle
// brackets and backslash-escaped commas outside quotes are not interpreted;
// such values parse into best-effort tag maps rather than failing.
package vcf
