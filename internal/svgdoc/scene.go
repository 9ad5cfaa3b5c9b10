package svgdoc

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Payload markers used by the canvas when it embeds the scene into an export.
const (
	PayloadType    = "application/vnd.excalidraw+json"
	PayloadVersion = "2"
	SceneType      = "excalidraw"
)

type envelope struct {
	Version    string `json:"version"`
	Encoding   string `json:"encoding"`
	Compressed bool   `json:"compressed"`
	Encoded    string `json:"encoded"`
}

// DecodeScene extracts and decodes the scene JSON embedded in doc.
func DecodeScene(doc string) ([]byte, error) {
	var (
		body    string
		version string
		found   bool
	)
	err := walk(doc, func(ev event) bool {
		switch ev.kind {
		case evComment:
			if v, ok := strings.CutPrefix(ev.value, "payload-version:"); ok {
				version = v
			}
		case evPayload:
			body = ev.value
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found || strings.TrimSpace(body) == "" {
		return nil, ErrNoScene
	}
	if version == "" {
		version = "1"
	}

	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(body), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: payload base64: %v", ErrMalformed, err)
	}
	// From version 2 on the base64 carries a byte string, one byte per char.
	if version != "1" {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: payload bytes: %v", ErrMalformed, err)
		}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: payload json: %v", ErrMalformed, err)
	}
	if _, ok := probe["encoded"]; !ok {
		// Legacy exports stored the scene itself.
		var typ string
		_ = json.Unmarshal(probe["type"], &typ)
		if typ == SceneType {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: unknown payload", ErrMalformed)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: payload envelope: %v", ErrMalformed, err)
	}
	if env.Encoding != "bstring" {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrMalformed, env.Encoding)
	}
	if !env.Compressed {
		return []byte(env.Encoded), nil
	}
	compressed, err := charmap.ISO8859_1.NewEncoder().String(env.Encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encoded bytes: %v", ErrMalformed, err)
	}
	zr, err := zlib.NewReader(strings.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	defer zr.Close()
	scene, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	return scene, nil
}

// EncodeScene renders scene JSON as the comment/payload block the canvas
// writes inside <metadata>.
func EncodeScene(scene []byte) (string, error) {
	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	if _, err := zw.Write(scene); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	encoded, err := charmap.ISO8859_1.NewDecoder().Bytes(deflated.Bytes())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{Version: "1", Encoding: "bstring", Compressed: true, Encoded: string(encoded)}); err != nil {
		return "", err
	}
	byteString, err := charmap.ISO8859_1.NewEncoder().Bytes(bytes.TrimRight(buf.Bytes(), "\n"))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<!-- payload-type:" + PayloadType + " -->")
	b.WriteString("<!-- payload-version:" + PayloadVersion + " -->")
	b.WriteString("<!-- payload-start -->")
	b.WriteString(base64.StdEncoding.EncodeToString(byteString))
	b.WriteString("<!-- payload-end -->")
	return b.String(), nil
}

// Blank builds a complete document holding scene and no drawn shapes. It is
// what a freshly seeded board file looks like before the canvas rewrites it.
func Blank(scene []byte) (string, error) {
	block, err := EncodeScene(scene)
	if err != nil {
		return "", err
	}
	markup := `<svg version="1.1" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 20" width="20" height="20">` +
		`<!-- svg-source:` + SceneType + ` -->` +
		`<metadata>` + block + `</metadata>` +
		`<defs></defs></svg>`
	return Compose(markup), nil
}
