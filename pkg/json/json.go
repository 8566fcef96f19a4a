// Package json provides JSON serialization backed by goccy/go-json with pooled buffers
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// MarshalNoEscape marshals v without escaping <, > and &
func MarshalNoEscape(v interface{}) ([]byte, error) {
	return gojson.MarshalNoEscape(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// EncodeIndented writes v to w with two-space indentation, no HTML escaping
// and a trailing newline. Output is deterministic for deterministic input.
//
// The encoder compacts the output of a Marshaler with HTML escaping turned
// on, so Marshaler values are indented directly from their own bytes.
func EncodeIndented(w io.Writer, v interface{}) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if m, ok := v.(gojson.Marshaler); ok {
		raw, err := m.MarshalJSON()
		if err != nil {
			return err
		}
		if err := gojson.Indent(buf, raw, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err
	}

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ObjectWriter builds a JSON object whose keys keep insertion order
type ObjectWriter struct {
	buf    bytes.Buffer
	fields int
}

// NewObjectWriter creates an ordered object writer
func NewObjectWriter(initialSize int) *ObjectWriter {
	w := &ObjectWriter{}
	w.buf.Grow(initialSize)
	w.buf.WriteByte('{')
	return w
}

// WriteField appends a key and its marshalled value
func (w *ObjectWriter) WriteField(key string, value interface{}) error {
	raw, err := gojson.MarshalNoEscape(value)
	if err != nil {
		return err
	}
	return w.WriteRawField(key, raw)
}

// WriteRawField appends a key and an already encoded JSON value
func (w *ObjectWriter) WriteRawField(key string, raw []byte) error {
	encodedKey, err := gojson.MarshalNoEscape(key)
	if err != nil {
		return err
	}
	if w.fields > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(encodedKey)
	w.buf.WriteByte(':')
	w.buf.Write(raw)
	w.fields++
	return nil
}

// AppendArray appends the JSON array of the already encoded elements to dst
func AppendArray(dst []byte, elems [][]byte) []byte {
	dst = append(dst, '[')
	for i, elem := range elems {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, elem...)
	}
	return append(dst, ']')
}

// Bytes returns the closed JSON object
func (w *ObjectWriter) Bytes() []byte {
	out := make([]byte, 0, w.buf.Len()+1)
	out = append(out, w.buf.Bytes()...)
	return append(out, '}')
}
