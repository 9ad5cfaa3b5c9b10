// Package svgdoc knows the on-disk shape of a board file: a fixed XML/DOCTYPE
// preamble followed by the canvas' exported SVG, which carries the editable
// scene in an embedded payload block.
package svgdoc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// Preamble is written in front of every exported document.
const Preamble = `<?xml version="1.0" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
`

// MIMEType is handed to the canvas when loading a document back.
const MIMEType = "image/svg+xml"

var (
	ErrEmpty     = errors.New("svgdoc: empty document")
	ErrNotSVG    = errors.New("svgdoc: root element is not <svg>")
	ErrMalformed = errors.New("svgdoc: malformed document")
	ErrNoScene   = errors.New("svgdoc: no embedded scene")
)

// Compose prepends the preamble to markup exported by the canvas.
func Compose(markup string) string {
	return Preamble + markup
}

// Info summarises a document without decoding its scene.
type Info struct {
	Root           string
	Width          string
	Height         string
	ViewBox        string
	Source         string // value of the svg-source comment, e.g. "excalidraw"
	HasScene       bool
	PayloadType    string
	PayloadVersion string
	Bytes          int
}

// Inspect lexes doc and reports what it contains.
func Inspect(doc string) (Info, error) {
	info := Info{Bytes: len(doc)}
	if strings.TrimSpace(doc) == "" {
		return info, ErrEmpty
	}
	err := walk(doc, func(ev event) bool {
		switch ev.kind {
		case evRoot:
			info.Root = ev.name
		case evRootAttr:
			switch ev.name {
			case "width":
				info.Width = ev.value
			case "height":
				info.Height = ev.value
			case "viewBox":
				info.ViewBox = ev.value
			}
		case evComment:
			key, value, ok := strings.Cut(ev.value, ":")
			if !ok {
				return true
			}
			switch key {
			case "svg-source":
				info.Source = value
			case "payload-type":
				info.PayloadType = value
			case "payload-version":
				info.PayloadVersion = value
			}
		case evPayload:
			info.HasScene = strings.TrimSpace(ev.value) != ""
		}
		return true
	})
	if err != nil {
		return info, err
	}
	if info.Root != "svg" {
		return info, ErrNotSVG
	}
	return info, nil
}

type eventKind int

const (
	evRoot eventKind = iota
	evRootAttr
	evComment
	evPayload
)

type event struct {
	kind  eventKind
	name  string
	value string
}

// walk feeds root element, root attributes, comments and the payload body to fn.
// fn returns false to stop early.
func walk(doc string, fn func(event) bool) error {
	lexer := xml.NewLexer(parse.NewInputString(doc))
	depth := 0
	inRoot := false
	inPayload := false
	var payload strings.Builder
	for {
		tt, data := lexer.Next()
		switch tt {
		case xml.ErrorToken:
			if lexer.Err() == io.EOF {
				if inPayload {
					return fmt.Errorf("%w: unterminated payload", ErrMalformed)
				}
				return nil
			}
			return fmt.Errorf("%w: %v", ErrMalformed, lexer.Err())
		case xml.StartTagToken:
			depth++
			if depth == 1 {
				inRoot = true
				if !fn(event{kind: evRoot, name: string(lexer.Text())}) {
					return nil
				}
			}
		case xml.AttributeToken:
			if inRoot {
				value := strings.Trim(string(lexer.AttrVal()), `"'`)
				if !fn(event{kind: evRootAttr, name: string(lexer.Text()), value: value}) {
					return nil
				}
			}
		case xml.StartTagCloseToken:
			inRoot = false
		case xml.StartTagCloseVoidToken:
			inRoot = false
			depth--
		case xml.EndTagToken:
			depth--
		case xml.CommentToken:
			text := commentText(data)
			switch text {
			case "payload-start":
				inPayload = true
				payload.Reset()
				continue
			case "payload-end":
				if !inPayload {
					return fmt.Errorf("%w: payload-end without payload-start", ErrMalformed)
				}
				inPayload = false
				if !fn(event{kind: evPayload, value: payload.String()}) {
					return nil
				}
				continue
			}
			if !fn(event{kind: evComment, value: text}) {
				return nil
			}
		case xml.TextToken:
			if inPayload {
				payload.Write(data)
			}
		}
	}
}

func commentText(data []byte) string {
	s := string(data)
	s = strings.TrimPrefix(s, "<!--")
	s = strings.TrimSuffix(s, "-->")
	return strings.TrimSpace(s)
}
