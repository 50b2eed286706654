// Package reader turns the raw regional exports into generic records.
//
// Three shapes are supported: JSON (a top-level array of objects or NDJSON),
// XML (one element per record, child elements as fields) and delimited text
// with a header row. Inputs are read fully into memory; directories are small
// and every load is a full rebuild. Latin-1/Windows-1252 exports are
// transcoded to UTF-8 before decoding.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"itvetl/internal/records"
)

// Format names a raw directory shape.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// Spec locates and describes one raw directory.
type Spec struct {
	// Location is a filesystem path or an http(s) URL.
	Location string
	Format   Format
	// RecordTag is the XML element wrapping one record. Defaults to "row".
	RecordTag string
	// Delimiter is the CSV separator. Defaults to ';'.
	Delimiter rune
}

// Reader fetches and decodes raw directories.
type Reader struct {
	http *Client
}

// New returns a Reader that fetches remote locations through c. A nil c uses
// a client with default retry settings.
func New(c *Client) *Reader {
	if c == nil {
		c = NewClient(ClientConfig{})
	}
	return &Reader{http: c}
}

// Read opens spec.Location and decodes it according to spec.Format.
func (r *Reader) Read(ctx context.Context, spec Spec) ([]records.Record, error) {
	rc, err := r.open(ctx, spec.Location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reader: read %s: %w", spec.Location, err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("reader: transcode %s: %w", spec.Location, err)
	}
	return Decode(bytes.NewReader(data), spec)
}

// Decode decodes already-opened UTF-8 input.
func Decode(in io.Reader, spec Spec) ([]records.Record, error) {
	switch spec.Format {
	case FormatJSON:
		return DecodeJSON(in)
	case FormatXML:
		tag := spec.RecordTag
		if tag == "" {
			tag = "row"
		}
		return DecodeXML(in, tag)
	case FormatCSV:
		d := spec.Delimiter
		if d == 0 {
			d = ';'
		}
		return DecodeCSV(in, d)
	default:
		return nil, fmt.Errorf("reader: unsupported format %q", spec.Format)
	}
}

func (r *Reader) open(ctx context.Context, loc string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc == "" {
		return nil, fmt.Errorf("reader: empty location")
	}
	if isRemote(loc) {
		return r.http.Open(ctx, loc)
	}
	f, err := os.Open(loc)
	if err != nil {
		return nil, fmt.Errorf("reader: open %s: %w", loc, err)
	}
	return f, nil
}

func isRemote(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.Windows1252.NewDecoder().Bytes(data)
}
