package layout

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInset(t *testing.T) {
	assert.Equal(t, image.Rect(10, 10, 90, 40), Inset(image.Rect(0, 0, 100, 50), 10))
	assert.Equal(t, image.Rect(0, 0, 100, 50), Inset(image.Rect(0, 0, 100, 50), 0))
	assert.Equal(t, image.Rect(50, 25, 50, 25), Inset(image.Rect(0, 0, 100, 50), 80))
	assert.Equal(t, image.Rect(10, 10, 90, 40), Inset(image.Rect(100, 50, 0, 0), 10))
}

func TestColumns(t *testing.T) {
	left, right := Columns(image.Rect(0, 0, 90, 50), 2.0/3)
	assert.Equal(t, image.Rect(0, 0, 60, 50), left)
	assert.Equal(t, image.Rect(60, 0, 90, 50), right)

	left, right = Columns(image.Rect(0, 0, 90, 50), 1.5)
	assert.Equal(t, image.Rect(0, 0, 90, 50), left)
	assert.True(t, right.Empty())
}

func TestRows(t *testing.T) {
	rows := Rows(image.Rect(0, 10, 100, 45), 10, 5)
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 10, 100, 20),
		image.Rect(0, 20, 100, 30),
		image.Rect(0, 30, 100, 40),
	}, rows)
	assert.Nil(t, Rows(image.Rect(0, 0, 100, 100), 0, 3))
}

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(35, 5, 75, 45), CenterSquare(image.Rect(5, 5, 105, 45)))
	assert.Equal(t, image.Rect(0, 20, 40, 60), CenterSquare(image.Rect(0, 0, 40, 80)))
}
