// Package sink implements OutputSink: stateless-per-row serialisation
// of a decoded row as either an INSERT statement or delimiter-separated
// values, with optional character-set transcoding (spec.md §4.5).
//
// Grounded on the teacher's internal/exporter package (value-to-string
// dispatch by column, CSV writer shape), generalised from
// engine.ResultSet rows to DecodedRow and extended with identifier
// quoting and GBK transcoding the teacher never needed.
package sink

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DecodedRow is the output unit AttrDecoder produces and OutputSink
// consumes: an ordered list of (column name, rendered text or NULL).
type DecodedRow struct {
	Table   string
	Columns []string
	// Values holds rendered text per column; a nil entry is NULL.
	Values []*string
}

// Format selects the emission shape.
type Format int

const (
	Insert Format = iota
	CSV
)

// Encoding selects the sink's output character set (spec.md §4.5). Render
// leaves UTF8 output as is and transcodes every other value to GBK.
type Encoding int

const (
	UTF8 Encoding = iota
	GBK
)

// ErrEncoding is a plain sentinel for a failed transcode; unlike
// xerrors.EncodingError it carries no byte offset.
var ErrEncoding = errors.New("sink: value cannot be transcoded to target encoding")

// Render serialises row according to format, then transcodes the result
// if enc is non-UTF-8.
func Render(row DecodedRow, format Format, enc Encoding) (string, error) {
	var out string
	switch format {
	case Insert:
		out = renderInsert(row)
	case CSV:
		out = renderCSV(row)
	default:
		return "", errors.Errorf("sink: unknown format %d", format)
	}
	if enc == UTF8 {
		return out, nil
	}
	return transcodeGBK(out)
}

func renderInsert(row DecodedRow) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdent(row.Table))
	sb.WriteString(" VALUES(")
	for i, v := range row.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		if v == nil {
			sb.WriteString("NULL")
			continue
		}
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(*v, "'", "''"))
		sb.WriteByte('\'')
	}
	sb.WriteString(");\n")
	return sb.String()
}

func renderCSV(row DecodedRow) string {
	parts := make([]string, len(row.Values))
	for i, v := range row.Values {
		if v == nil {
			parts[i] = `\N`
		} else {
			parts[i] = *v
		}
	}
	return strings.Join(parts, "\t") + "\n"
}

// quoteIdent wraps ident in double quotes iff it contains an uppercase
// character (spec.md §4.5).
func quoteIdent(ident string) string {
	for _, r := range ident {
		if r >= 'A' && r <= 'Z' {
			return `"` + ident + `"`
		}
	}
	return ident
}

func transcodeGBK(s string) (string, error) {
	out, _, err := transform.String(simplifiedchinese.GBK.NewEncoder(), s)
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	return out, nil
}
