// Package assets carries the canvas page: index.html, the stylesheet and the
// glue script that connects the canvas to the board socket.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed web
var embedded embed.FS

// WebUI is the page tree with the web/ prefix stripped, ready to serve at "/".
var WebUI = mustSub(embedded, "web")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
