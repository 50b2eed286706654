package reader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"itvetl/internal/records"
)

// DecodeXML emits one record per element named tag. Leaf descendants become
// fields keyed by their local name; attributes of the record element are kept
// as fields too. When record elements nest (open-data portals wrap the row
// list in an outer <row>), only the innermost ones produce records.
//
// Input must already be UTF-8; a declared legacy charset is accepted as is.
func DecodeXML(r io.Reader, tag string) ([]records.Record, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var (
		out   []records.Record
		cur   records.Record
		field string
		text  strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("xml reader: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == tag {
				cur = records.Record{}
				for _, a := range t.Attr {
					cur[a.Name.Local] = a.Value
				}
				field = ""
				continue
			}
			if cur != nil {
				field = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if cur != nil && field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == tag:
				if len(cur) > 0 {
					out = append(out, cur)
				}
				cur, field = nil, ""
			case cur != nil && t.Name.Local == field:
				cur[field] = strings.TrimSpace(text.String())
				field = ""
			}
		}
	}
}
