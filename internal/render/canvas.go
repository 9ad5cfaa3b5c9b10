package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	fontOnce sync.Once
	ttFont   *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		ttFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return ttFont, fontErr
}

// Canvas is an offscreen RGBA image implementing Drawer. Faces are created
// lazily per point size.
type Canvas struct {
	img   *image.RGBA
	faces map[int]font.Face

	Logger interface {
		Errorf(string, string, ...interface{})
	}
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		faces: make(map[int]font.Face),
	}
}

// Image returns the backing image.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) FillBackground() {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

func (c *Canvas) face(size int) font.Face {
	if size <= 0 {
		size = DefaultTextSize
	}
	if f, ok := c.faces[size]; ok {
		return f
	}
	tt, err := loadFont()
	if err != nil {
		if c.Logger != nil {
			c.Logger.Errorf("render", "font parse failed, using basicfont: %v", err)
		}
		c.faces[size] = basicfont.Face7x13
		return basicfont.Face7x13
	}
	f := truetype.NewFace(tt, &truetype.Options{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	c.faces[size] = f
	return f
}

func (c *Canvas) MeasureText(text string, style TextStyle) TextMetrics {
	face := c.face(style.Size)
	m := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	return TextMetrics{
		Width:      width,
		Height:     m.Ascent.Ceil() + m.Descent.Ceil(),
		Ascent:     m.Ascent.Ceil(),
		Descent:    m.Descent.Ceil(),
		LineHeight: m.Height.Ceil(),
	}
}

func (c *Canvas) DrawText(text string, x, y int, style TextStyle) TextMetrics {
	metrics := c.MeasureText(text, style)
	switch style.Align {
	case TextAlignCenter:
		x -= metrics.Width / 2
	case TextAlignRight:
		x -= metrics.Width
	}
	fg := style.Color
	if fg == nil {
		fg = Foreground
	}
	drawer := &font.Drawer{Dst: c.img, Src: &image.Uniform{C: fg}, Face: c.face(style.Size)}
	drawer.Dot = fixed.P(x, y+metrics.Ascent)
	drawer.DrawString(text)
	return metrics
}

func (c *Canvas) DrawTextCentered(text string) {
	w, h := c.Size()
	metrics := c.MeasureText(text, TextStyle{})
	c.DrawText(text, w/2, (h-metrics.Height)/2, TextStyle{Align: TextAlignCenter})
}

func (c *Canvas) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) {
	if img == nil || rect.Empty() {
		return
	}
	dst := placeImage(img.Bounds(), rect, mode)
	if dst.Empty() {
		return
	}
	clip := image.NewRGBA(rect)
	draw.Draw(clip, rect, c.img, rect.Min, draw.Src)
	xdraw.NearestNeighbor.Scale(clip, dst, img, img.Bounds(), xdraw.Over, nil)
	draw.Draw(c.img, rect, clip, rect.Min, draw.Src)
}

// placeImage computes where an image of size src lands inside rect.
func placeImage(src, rect image.Rectangle, mode ScaleMode) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rectangle{}
	}
	if mode == ScaleModeStretch {
		return rect
	}
	scaleX := float64(rect.Dx()) / float64(sw)
	scaleY := float64(rect.Dy()) / float64(sh)
	scale := scaleX
	if (mode == ScaleModeFit && scaleY < scaleX) || (mode == ScaleModeFill && scaleY > scaleX) {
		scale = scaleY
	}
	w := int(float64(sw) * scale)
	h := int(float64(sh) * scale)
	x := rect.Min.X + (rect.Dx()-w)/2
	y := rect.Min.Y + (rect.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// opaque drops alpha so framebuffers without an alpha channel get solid pixels.
func opaque(c color.RGBA) color.RGBA {
	c.A = 0xFF
	return c
}
