package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"##fileformat=VCFv4.2", KindMetadata},
		{"##", KindMetadata},
		{"###triple", KindMetadata},
		{"#CHROM\tPOS", KindHeader},
		{"#", KindHeader},
		{"1\t100\trs1", KindBody},
		{"", KindBody},
		{" #indented", KindBody},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestLineKindString(t *testing.T) {
	assert.Equal(t, "metadata", KindMetadata.String())
	assert.Equal(t, "header", KindHeader.String())
	assert.Equal(t, "body", KindBody.String())
}
