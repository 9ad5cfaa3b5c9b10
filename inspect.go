package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/muesli/termenv"

	"github.com/rook-computer/drawboard/internal/svgdoc"
)

// runInspect prints what drawboard would see when opening a board file.
func runInspect(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: drawboard inspect FILE.svg")
		return 2
	}
	path, err := homedir.Expand(args[0])
	if err != nil {
		fmt.Fprintln(stderr, "inspect:", err)
		return 1
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, "inspect:", err)
		return 1
	}
	if err := inspectDocument(termenv.NewOutput(stdout), path, string(data)); err != nil {
		fmt.Fprintln(stderr, "inspect:", err)
		return 1
	}
	return 0
}

func inspectDocument(out *termenv.Output, path, doc string) error {
	info, err := svgdoc.Inspect(doc)
	if err != nil {
		return err
	}
	label := func(s string) string { return out.String(s).Bold().String() }

	fmt.Fprintf(out, "%s %s\n", label("file:   "), path)
	fmt.Fprintf(out, "%s %d bytes\n", label("size:   "), info.Bytes)
	fmt.Fprintf(out, "%s %s x %s", label("canvas: "), orDash(info.Width), orDash(info.Height))
	if info.ViewBox != "" {
		fmt.Fprintf(out, " (viewBox %s)", info.ViewBox)
	}
	fmt.Fprintln(out)
	if info.Source != "" {
		fmt.Fprintf(out, "%s %s\n", label("source: "), info.Source)
	}
	if !info.HasScene {
		fmt.Fprintf(out, "%s %s\n", label("scene:  "), out.String("none, the board opens empty").Foreground(out.Color("3")))
		return nil
	}

	scene, err := svgdoc.DecodeScene(doc)
	if err != nil {
		if errors.Is(err, svgdoc.ErrNoScene) {
			fmt.Fprintf(out, "%s none\n", label("scene:  "))
			return nil
		}
		return err
	}
	var parsed struct {
		Elements []json.RawMessage         `json:"elements"`
		Files    map[string]json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal(scene, &parsed); err != nil {
		return fmt.Errorf("scene json: %w", err)
	}
	fmt.Fprintf(out, "%s %s v%s, %d elements, %d files\n", label("scene:  "), info.PayloadType, info.PayloadVersion, len(parsed.Elements), len(parsed.Files))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
