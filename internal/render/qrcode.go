package render

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
)

const (
	defaultQRCodeSizePx = 256
	MaxQRCodeSizePx     = 2048
)

func qrSize(sizePx int) (int, error) {
	switch {
	case sizePx <= 0:
		return defaultQRCodeSizePx, nil
	case sizePx > MaxQRCodeSizePx:
		return 0, fmt.Errorf("qr code size %d exceeds %d", sizePx, MaxQRCodeSizePx)
	}
	return sizePx, nil
}

// GenerateQRCodeImage renders the board URL for the status screen. An empty
// payload gives (nil, nil) so screens can skip the code.
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	if payload == "" {
		return nil, nil
	}
	size, err := qrSize(sizePx)
	if err != nil {
		return nil, err
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.Image(size), nil
}

// QRCodePNG is the PNG behind /api/v1/qr.png.
func QRCodePNG(payload string, sizePx int) ([]byte, error) {
	size, err := qrSize(sizePx)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
