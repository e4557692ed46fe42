// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// page is one decoded page of portal records, independent of the wire
// format it arrived in.
type page struct {
	Title   string
	Total   int
	Records []map[string]any
}

// recordDecoder turns one raw response body into a page of records. Each
// wire format the portal can emit (JSON, CSV, XML) implements it; adding
// a format never touches fetch or caching logic.
type recordDecoder interface {
	name() string
	decode(body []byte) (page, error)
}

// detectDecoder picks the decoder for a response, by Content-Type first
// and by sniffing the first non-space byte when the header is missing or
// unhelpful. The portal is known to mislabel CSV bodies as text/plain.
func detectDecoder(contentType string, body []byte) recordDecoder {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return jsonDecoder{}
	case strings.Contains(ct, "xml"):
		return xmlDecoder{}
	case strings.Contains(ct, "csv"):
		return csvDecoder{}
	}

	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return jsonDecoder{}
		case '<':
			return xmlDecoder{}
		default:
			return csvDecoder{}
		}
	}
	return jsonDecoder{}
}

// --- JSON ---

type jsonDecoder struct{}

func (jsonDecoder) name() string { return "json" }

// jsonEnvelope is the portal's JSON response shape. Numeric envelope
// fields occasionally arrive as strings, hence the any types.
type jsonEnvelope struct {
	Title   string           `json:"title"`
	Total   any              `json:"total"`
	Count   any              `json:"count"`
	Records []map[string]any `json:"records"`
}

func (jsonDecoder) decode(body []byte) (page, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return page{}, fmt.Errorf("parsing JSON response: %w", err)
	}
	return page{
		Title:   env.Title,
		Total:   asInt(env.Total),
		Records: env.Records,
	}, nil
}

// asInt coerces the loose numeric types the portal emits into an int.
func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

// --- CSV ---

type csvDecoder struct{}

func (csvDecoder) name() string { return "csv" }

// decode reads a header row and turns each following row into a record,
// coercing numeric-looking cells to float64. Malformed rows are skipped.
func (csvDecoder) decode(body []byte) (page, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return page{}, fmt.Errorf("parsing CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rec := make(map[string]any, len(headers))
		for i, val := range row {
			if i >= len(headers) {
				break
			}
			rec[headers[i]] = coerceValue(val)
		}
		records = append(records, rec)
	}

	return page{Total: len(records), Records: records}, nil
}

// --- XML ---

type xmlDecoder struct{}

func (xmlDecoder) name() string { return "xml" }

// decode walks the token stream and treats every <item> or <record>
// element as one record, its child elements becoming fields. Envelope
// <title> and <total> elements outside records are kept as page metadata.
func (xmlDecoder) decode(body []byte) (page, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var p page

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return page{}, fmt.Errorf("parsing XML response: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(start.Name.Local) {
		case "item", "record":
			rec, err := decodeXMLRecord(dec, start.Name.Local)
			if err != nil {
				return page{}, fmt.Errorf("parsing XML record: %w", err)
			}
			p.Records = append(p.Records, rec)
		case "title":
			text, err := elementText(dec, start.Name.Local)
			if err != nil {
				return page{}, err
			}
			if p.Title == "" {
				p.Title = text
			}
		case "total":
			text, err := elementText(dec, start.Name.Local)
			if err != nil {
				return page{}, err
			}
			p.Total = asInt(text)
		}
	}

	if p.Total == 0 {
		p.Total = len(p.Records)
	}
	return p, nil
}

// decodeXMLRecord consumes tokens until the record element closes,
// mapping each child element to a field.
func decodeXMLRecord(dec *xml.Decoder, recordTag string) (map[string]any, error) {
	rec := make(map[string]any)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			text, err := elementText(dec, t.Name.Local)
			if err != nil {
				return nil, err
			}
			rec[t.Name.Local] = coerceValue(text)
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, recordTag) {
				return rec, nil
			}
		}
	}
}

// elementText consumes tokens until tag closes and returns the
// accumulated character data.
func elementText(dec *xml.Decoder, tag string) (string, error) {
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, tag) {
				return strings.TrimSpace(b.String()), nil
			}
		}
	}
}

// coerceValue keeps numeric-looking text as float64 so downstream
// aggregation sees numbers regardless of wire format.
func coerceValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
