package vcf

import (
	stderrors "errors"
	"strings"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/json"
)

// ErrMissingSeparator is returned for a metadata line without '='
var ErrMissingSeparator = stderrors.New("metadata line has no '=' separator")

// Entry is a single "##KEY=VALUE" preamble line
type Entry struct {
	Key      string
	RawValue string
}

// ParseEntry splits a metadata line on its first '='. The "##" marker is
// optional so that callers can pass either the full line or its body.
func ParseEntry(line string) (Entry, error) {
	body := strings.TrimPrefix(line, metadataPrefix)
	key, value, found := strings.Cut(body, "=")
	if !found {
		return Entry{Key: body}, ErrMissingSeparator
	}
	return Entry{Key: key, RawValue: value}, nil
}

// Tag is one "subkey=subvalue" item of a tag-list value
type Tag struct {
	Key   string
	Value string
}

// TagList is an ordered mapping parsed from an angle-bracket value
type TagList struct {
	tags []Tag
}

// Set adds key or replaces its value, keeping the original position
func (t *TagList) Set(key, value string) {
	for i := range t.tags {
		if t.tags[i].Key == key {
			t.tags[i].Value = value
			return
		}
	}
	t.tags = append(t.tags, Tag{Key: key, Value: value})
}

// Get returns the value of key
func (t *TagList) Get(key string) (string, bool) {
	for _, tag := range t.tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Tags returns the items in declaration order
func (t *TagList) Tags() []Tag {
	return t.tags
}

// Len returns the number of items
func (t *TagList) Len() int {
	return len(t.tags)
}

// MarshalJSON encodes the tag list as an object in declaration order
func (t *TagList) MarshalJSON() ([]byte, error) {
	w := json.NewObjectWriter(32 * len(t.tags))
	for _, tag := range t.tags {
		if err := w.WriteField(tag.Key, tag.Value); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// Value is either an opaque string or a structured tag list
type Value struct {
	scalar string
	tags   *TagList
}

// ScalarValue wraps an unstructured value
func ScalarValue(s string) Value {
	return Value{scalar: s}
}

// TagListValue wraps a structured value
func TagListValue(t *TagList) Value {
	return Value{tags: t}
}

// ParseValue interprets a raw metadata value. Values wrapped in angle
// brackets become tag lists; everything else stays a string.
func ParseValue(raw string) Value {
	if len(raw) >= 2 && raw[0] == '<' && raw[len(raw)-1] == '>' {
		return TagListValue(parseTagList(raw[1 : len(raw)-1]))
	}
	return ScalarValue(raw)
}

// IsTagList reports whether the value is structured
func (v Value) IsTagList() bool {
	return v.tags != nil
}

// TagList returns the structured value, or nil for scalars
func (v Value) TagList() *TagList {
	return v.tags
}

// String returns the scalar value, or "" for tag lists
func (v Value) String() string {
	return v.scalar
}

// MarshalJSON encodes scalars as strings and tag lists as objects
func (v Value) MarshalJSON() ([]byte, error) {
	if v.tags != nil {
		return v.tags.MarshalJSON()
	}
	return json.MarshalNoEscape(v.scalar)
}

// parseTagList splits "A=1,B=\"x, y\"" on commas outside double quotes
func parseTagList(interior string) *TagList {
	list := &TagList{}
	for _, item := range splitOutsideQuotes(interior) {
		if item == "" {
			continue
		}
		key, value, _ := strings.Cut(item, "=")
		list.Set(strings.TrimSpace(key), unquote(value))
	}
	return list
}

func splitOutsideQuotes(s string) []string {
	var (
		items   []string
		start   int
		inQuote bool
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			items = append(items, s[start:i])
			start = i + 1
		}
	}
	return append(items, s[start:])
}

// unquote strips surrounding double quotes and unescapes \" and \\ inside them
func unquote(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	inner := v[1 : len(v)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) && (inner[i+1] == '"' || inner[i+1] == '\\') {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// Document is the ordered multimap of preamble keys to their values.
// Keys keep the order of their first occurrence; values keep input order.
type Document struct {
	keys   []string
	values map[string][]Value
	total  int
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{values: make(map[string][]Value)}
}

// Add appends value under key
func (d *Document) Add(key string, value Value) {
	d.ensureKey(key)
	d.values[key] = append(d.values[key], value)
	d.total++
}

// AddKey records key with no values
func (d *Document) AddKey(key string) {
	d.ensureKey(key)
}

func (d *Document) ensureKey(key string) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
		d.values[key] = []Value{}
	}
}

// Keys returns keys in first-occurrence order
func (d *Document) Keys() []string {
	return d.keys
}

// Values returns the values recorded for key
func (d *Document) Values(key string) []Value {
	return d.values[key]
}

// Len returns the number of distinct keys
func (d *Document) Len() int {
	return len(d.keys)
}

// EntryCount returns the total number of values across all keys
func (d *Document) EntryCount() int {
	return d.total
}

// MarshalJSON encodes the document as {"KEY": [value, ...], ...} in key order
func (d *Document) MarshalJSON() ([]byte, error) {
	w := json.NewObjectWriter(256 * len(d.keys))
	for _, key := range d.keys {
		// values are encoded one by one; marshalling the slice would re-escape them
		values := d.values[key]
		elems := make([][]byte, 0, len(values))
		for _, value := range values {
			raw, err := value.MarshalJSON()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode metadata").
					WithDetail("key", key)
			}
			elems = append(elems, raw)
		}
		if err := w.WriteRawField(key, json.AppendArray(nil, elems)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode metadata").
				WithDetail("key", key)
		}
	}
	return w.Bytes(), nil
}
