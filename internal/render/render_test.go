package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/rook-computer/drawboard/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceImage(t *testing.T) {
	src := image.Rect(0, 0, 100, 50)
	rect := image.Rect(0, 0, 200, 200)

	assert.Equal(t, image.Rect(0, 50, 200, 150), placeImage(src, rect, ScaleModeFit))
	assert.Equal(t, image.Rect(-100, 0, 300, 200), placeImage(src, rect, ScaleModeFill))
	assert.Equal(t, rect, placeImage(src, rect, ScaleModeStretch))
	assert.True(t, placeImage(image.Rectangle{}, rect, ScaleModeFit).Empty())
}

func TestCanvasText(t *testing.T) {
	c := NewCanvas(400, 200)
	c.FillBackground()
	assert.Equal(t, Background, c.Image().RGBAAt(0, 0))

	small := c.MeasureText("board", TextStyle{Size: 12})
	large := c.MeasureText("board", TextStyle{Size: 36})
	assert.Greater(t, small.Width, 0)
	assert.Greater(t, large.Width, small.Width)
	assert.Greater(t, large.LineHeight, small.LineHeight)

	m := c.DrawText("board", 10, 10, TextStyle{Size: 24, Color: Accent})
	assert.Greater(t, m.Height, 0)
	assert.True(t, hasPixel(c.Image(), image.Rect(10, 10, 10+m.Width, 10+m.Height), Accent))
}

func TestCanvasDrawImageInRect(t *testing.T) {
	c := NewCanvas(100, 100)
	c.FillBackground()
	qr, err := GenerateQRCodeImage("http://127.0.0.1:1420/", 64)
	require.NoError(t, err)
	require.NotNil(t, qr)

	c.DrawImageInRect(qr, image.Rect(10, 10, 90, 90), ScaleModeFit)
	assert.Equal(t, Background, c.Image().RGBAAt(5, 5))
	assert.NotEqual(t, Background, c.Image().RGBAAt(50, 50))
}

func TestGenerateQRCodeImageEmpty(t *testing.T) {
	img, err := GenerateQRCodeImage("", 0)
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestQRCodePNG(t *testing.T) {
	data, err := QRCodePNG("http://127.0.0.1:1420/", 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultQRCodeSizePx, img.Bounds().Dx())
}

func TestQRCodeSizeLimit(t *testing.T) {
	_, err := QRCodePNG("http://127.0.0.1:1420/", MaxQRCodeSizePx+1)
	assert.Error(t, err)
	_, err = GenerateQRCodeImage("http://127.0.0.1:1420/", MaxQRCodeSizePx+1)
	assert.Error(t, err)
}

func TestCardRendererPNG(t *testing.T) {
	card := NewCardRenderer(ScreenFunc(func(r Drawer, st state.State) {
		r.DrawTextCentered("status " + st.Phase.String())
	}))
	data, err := card.PNG(state.State{Phase: state.READY})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, CanvasWidth/2, img.Bounds().Dx())
	assert.Equal(t, CanvasHeight/2, img.Bounds().Dy())
}

func hasPixel(img *image.RGBA, rect image.Rectangle, want interface{ RGBA() (r, g, b, a uint32) }) bool {
	wr, wg, wb, _ := want.RGBA()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r == wr && g == wg && b == wb {
				return true
			}
		}
	}
	return false
}
