package preview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// extractText returns readable text of (X)HTML document with whitespace
// collapsed and composed to NFC, so offsets do not depend on how the
// package spells accented letters. Content of head, script and style
// elements is dropped.
func extractText(data []byte) ([]rune, error) {
	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// legacy content, encoding comes from BOM or meta
		cr, err := charset.NewReader(r, "text/html")
		if err != nil {
			return nil, fmt.Errorf("unable to detect encoding: %w", err)
		}
		r = cr
	}

	var (
		sb    strings.Builder
		skip  int
		space = true
	)
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return []rune(norm.NFC.String(strings.TrimRightFunc(sb.String(), unicode.IsSpace))), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tt := z.Token()
			switch tt.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Title:
				if tt.Type == html.StartTagToken {
					skip++
				}
			case atom.P, atom.Div, atom.Br, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Li, atom.Tr:
				if !space {
					sb.WriteByte(' ')
					space = true
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Head, atom.Script, atom.Style, atom.Title:
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, c := range string(z.Text()) {
				if unicode.IsSpace(c) {
					if !space {
						sb.WriteByte(' ')
						space = true
					}
					continue
				}
				sb.WriteRune(c)
				space = false
			}
		}
	}
}
