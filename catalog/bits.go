// Package catalog turns a course detail page into a db.Course.
package catalog

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Bit is one line of a course detail cell. Heading is set for field labels
// such as "Restrictions"; otherwise Text holds the line with its leading
// whitespace intact.
type Bit struct {
	Heading string
	Text    string
}

func (b Bit) IsHeading() bool {
	return b.Heading != ""
}

// SplitBits walks a detail cell and breaks it into lines at <br> elements and
// newlines. Labels in span.fieldlabeltext become heading bits.
func SplitBits(cell *goquery.Selection) []Bit {
	var s splitter
	s.walk(cell.Contents())
	s.flush()
	return s.bits
}

type splitter struct {
	bits []Bit
	line strings.Builder
}

func (s *splitter) walk(nodes *goquery.Selection) {
	nodes.Each(func(_ int, n *goquery.Selection) {
		node := n.Get(0)
		switch node.Type {
		case html.TextNode:
			for i, part := range strings.Split(node.Data, "\n") {
				if i > 0 {
					s.flush()
				}
				s.line.WriteString(part)
			}
		case html.ElementNode:
			switch {
			case n.Is("br"):
				s.flush()
			case n.Is("span.fieldlabeltext"):
				s.flush()
				heading := strings.TrimSuffix(strings.TrimSpace(n.Text()), ":")
				if heading != "" {
					s.bits = append(s.bits, Bit{Heading: heading})
				}
			case n.Is("script, style"):
			default:
				s.walk(n.Contents())
			}
		}
	})
}

func (s *splitter) flush() {
	text := strings.TrimRightFunc(s.line.String(), unicode.IsSpace)
	s.line.Reset()
	if strings.TrimSpace(text) == "" {
		return
	}
	s.bits = append(s.bits, Bit{Text: text})
}

// Fields groups bits under their headings. Lines before the first heading
// belong to Preamble.
type Fields struct {
	Preamble []string
	ByLabel  map[string][]string
}

func Group(bits []Bit) Fields {
	fields := Fields{ByLabel: map[string][]string{}}

	current := ""
	for _, bit := range bits {
		if bit.IsHeading() {
			current = bit.Heading
			if _, ok := fields.ByLabel[current]; !ok {
				fields.ByLabel[current] = nil
			}
			continue
		}
		if current == "" {
			fields.Preamble = append(fields.Preamble, bit.Text)
		} else {
			fields.ByLabel[current] = append(fields.ByLabel[current], bit.Text)
		}
	}
	return fields
}

// Text joins a field's lines with single spaces.
func (f Fields) Text(label string) string {
	lines := f.ByLabel[label]
	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			trimmed = append(trimmed, line)
		}
	}
	return strings.Join(trimmed, " ")
}

func (f Fields) Has(label string) bool {
	_, ok := f.ByLabel[label]
	return ok
}
