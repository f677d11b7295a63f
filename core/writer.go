package brc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

// render writes {name:min/max/mean,...}, one decimal each.
func (r *Result) render(buffer *bytes.Buffer, sep string) {
	buffer.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buffer.WriteString(sep)
		}
		buffer.Write(e.Key.Bytes())
		fmt.Fprintf(buffer, ":%.1f/%.1f/%.1f", e.Stat.Min, e.Stat.Max, e.Stat.Mean())
	}
	buffer.WriteByte('}')
}

func (r *Result) String() string {
	var buffer bytes.Buffer
	r.render(&buffer, ",")
	return buffer.String()
}

// Lines renders one station per line, for diffing two results.
func (r *Result) Lines() string {
	var buffer bytes.Buffer
	r.render(&buffer, ",\n")
	return buffer.String()
}

// Digest fingerprints the rendered result.
func (r *Result) Digest() uint64 {
	var buffer bytes.Buffer
	r.render(&buffer, ",")
	return xxh3.Hash(buffer.Bytes())
}

// WriteResult writes the rendered result followed by a newline.
func WriteResult(w io.Writer, r *Result) error {
	var buffer bytes.Buffer
	r.render(&buffer, ",")
	buffer.WriteByte('\n')
	_, err := w.Write(buffer.Bytes())
	return err
}
