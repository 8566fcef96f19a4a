package vcf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vcf2parquet/pkg/json"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr error
	}{
		{"scalar", "##fileformat=VCFv4.2", Entry{Key: "fileformat", RawValue: "VCFv4.2"}, nil},
		{"first equals only", "##source=a=b=c", Entry{Key: "source", RawValue: "a=b=c"}, nil},
		{"empty value", "##reference=", Entry{Key: "reference", RawValue: ""}, nil},
		{"without marker", "contig=<ID=1>", Entry{Key: "contig", RawValue: "<ID=1>"}, nil},
		{"missing separator", "##bare", Entry{Key: "bare"}, ErrMissingSeparator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.line)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValueScalar(t *testing.T) {
	v := ParseValue("VCFv4.2")
	assert.False(t, v.IsTagList())
	assert.Nil(t, v.TagList())
	assert.Equal(t, "VCFv4.2", v.String())

	// a lone bracket is not a tag list
	assert.False(t, ParseValue("<ID=1").IsTagList())
}

func TestParseValueTagList(t *testing.T) {
	v := ParseValue(`<ID=DP,Number=1,Type=Integer,Description="Total Depth">`)
	require.True(t, v.IsTagList())

	tags := v.TagList()
	assert.Equal(t, []Tag{
		{Key: "ID", Value: "DP"},
		{Key: "Number", Value: "1"},
		{Key: "Type", Value: "Integer"},
		{Key: "Description", Value: "Total Depth"},
	}, tags.Tags())
}

func TestParseValueQuotedCommas(t *testing.T) {
	v := ParseValue(`<ID=AF,Description="Allele frequency, per ALT allele",Source="x \"y\" z">`)
	tags := v.TagList()
	require.Equal(t, 3, tags.Len())

	desc, ok := tags.Get("Description")
	require.True(t, ok)
	assert.Equal(t, "Allele frequency, per ALT allele", desc)

	src, _ := tags.Get("Source")
	assert.Equal(t, `x "y" z`, src)
}

func TestParseValueItemWithoutEquals(t *testing.T) {
	tags := ParseValue("<ID=1,Flag,,Extra=>").TagList()
	assert.Equal(t, []Tag{
		{Key: "ID", Value: "1"},
		{Key: "Flag", Value: ""},
		{Key: "Extra", Value: ""},
	}, tags.Tags())
}

func TestTagListSetOverwritesInPlace(t *testing.T) {
	tags := ParseValue("<ID=1,Type=A,ID=2>").TagList()
	assert.Equal(t, []Tag{{Key: "ID", Value: "2"}, {Key: "Type", Value: "A"}}, tags.Tags())

	_, ok := tags.Get("missing")
	assert.False(t, ok)
}

func TestDocumentPreservesDuplicatesAndOrder(t *testing.T) {
	doc := NewDocument()
	doc.Add("fileformat", ScalarValue("VCFv4.2"))
	doc.Add("INFO", ParseValue("<ID=DP>"))
	doc.AddKey("bare")
	doc.Add("INFO", ParseValue("<ID=AF>"))

	assert.Equal(t, []string{"fileformat", "INFO", "bare"}, doc.Keys())
	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, 3, doc.EntryCount())
	assert.Len(t, doc.Values("INFO"), 2)
	assert.Empty(t, doc.Values("bare"))
	assert.Nil(t, doc.Values("nope"))
}

func TestDocumentMarshalJSON(t *testing.T) {
	doc := NewDocument()
	doc.Add("fileformat", ScalarValue("VCFv4.2"))
	doc.Add("INFO", ParseValue(`<ID=DP,Number=1,Type=Integer,Description="Total Depth">`))
	doc.Add("INFO", ParseValue(`<ID=AF,Number=A,Type=Float,Description="Allele Frequency">`))
	doc.AddKey("bare")

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	want := `{"fileformat":["VCFv4.2"],` +
		`"INFO":[{"ID":"DP","Number":"1","Type":"Integer","Description":"Total Depth"},` +
		`{"ID":"AF","Number":"A","Type":"Float","Description":"Allele Frequency"}],` +
		`"bare":[]}`
	assert.JSONEq(t, want, string(raw))

	// key order is significant, JSONEq ignores it
	assert.Less(t, indexOf(string(raw), `"fileformat"`), indexOf(string(raw), `"INFO"`))
	assert.Less(t, indexOf(string(raw), `"ID":"DP"`), indexOf(string(raw), `"Number":"1"`))
}

func TestDocumentMarshalKeepsAngleBrackets(t *testing.T) {
	doc := NewDocument()
	doc.Add("ALT", ScalarValue("<DEL>&more"))
	doc.Add("INFO", ParseValue(`<ID=AF,Description="AF < 0.1 & more">`))

	raw, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"ALT":["<DEL>&more"],"INFO":[{"ID":"AF","Description":"AF < 0.1 & more"}]}`, string(raw))

	var out bytes.Buffer
	require.NoError(t, json.EncodeIndented(&out, doc))
	assert.Contains(t, out.String(), `"<DEL>&more"`)
	assert.Contains(t, out.String(), `"Description": "AF < 0.1 & more"`)
	assert.NotContains(t, out.String(), `\u00`)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
