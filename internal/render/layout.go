package render

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/schema"
)

// Title is printed at the top of every certificate.
const Title = "TRANSFER CERTIFICATE"

// DefaultSignatory is printed right-aligned below the table.
const DefaultSignatory = "PRINCIPAL"

// Line is one row of the certificate table. Unnumbered lines have Number 0.
type Line struct {
	Number int    `json:"number,omitempty"`
	Label  string `json:"label"`
	Colon  bool   `json:"colon"`
	Value  string `json:"value"`
}

// NumberText returns "7." for numbered lines and "" otherwise.
func (l Line) NumberText() string {
	if l.Number == 0 {
		return ""
	}
	return strconv.Itoa(l.Number) + "."
}

// HeaderItem is one caption/value pair on the line above the table.
type HeaderItem struct {
	Caption string `json:"caption"`
	Value   string `json:"value"`
}

// Text renders the item as "Reg. No. : 123".
func (h HeaderItem) Text() string {
	return h.Caption + " : " + h.Value
}

// Certificate is the resolved content of one certificate page.
type Certificate struct {
	Institution string       `json:"institution,omitempty"`
	Title       string       `json:"title"`
	Header      []HeaderItem `json:"header"`
	Lines       []Line       `json:"lines"`
	Signatory   string       `json:"signatory"`
}

// Numbered returns only the numbered lines.
func (c Certificate) Numbered() []Line {
	out := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Number > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Layout resolves rec into certificate lines by walking the field schema.
// Every field produces output even when empty. Fields that share a line
// number are joined; a joiner is only written between non-empty values.
func Layout(rec schema.Record, assets Assets) Certificate {
	c := Certificate{
		Institution: assets.Institution,
		Title:       Title,
		Signatory:   assets.signatory(),
	}

	for _, f := range schema.Fields() {
		v, _ := rec.Get(f.Key)
		v = strings.TrimSpace(v)
		p := f.Placement

		switch p.Kind {
		case schema.PlaceHeader:
			c.Header = append(c.Header, HeaderItem{Caption: p.Caption, Value: v})

		case schema.PlaceNumbered:
			if n := len(c.Lines); n > 0 && c.Lines[n-1].Number == p.Line {
				last := &c.Lines[n-1]
				switch {
				case v == "":
				case last.Value == "":
					last.Value = v
				default:
					last.Value += p.Joiner + v
				}
				continue
			}
			c.Lines = append(c.Lines, Line{Number: p.Line, Label: p.Caption, Colon: true, Value: v})

		case schema.PlaceContinuation:
			c.Lines = append(c.Lines, Line{Label: p.Caption, Colon: true, Value: v})

		case schema.PlaceTrailer:
			c.Lines = append(c.Lines, Line{Value: p.Caption + ": " + v})
		}
	}
	return c
}
