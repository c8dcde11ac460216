// Package qrscan encodes certificate links as QR images and decodes them back.
package qrscan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/url"
	"strings"

	// decoders for DecodeReader
	_ "image/gif"
	_ "image/jpeg"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoQRCode is returned when an image contains no readable QR code
var ErrNoQRCode = errors.New("no QR code found")

// quiet zone around the symbol, in pixels
const margin = 16

// Encode renders text as a PNG QR code of roughly size x size pixels,
// using the highest error correction level
func Encode(text string, size int) ([]byte, error) {
	img, err := Image(text, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Image renders text as a QR code image with a white quiet zone
func Image(text string, size int) (image.Image, error) {
	if text == "" {
		return nil, errors.New("empty QR payload")
	}

	code, err := qr.Encode(text, qr.H, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	// Scale only grows the symbol
	if size < code.Bounds().Dx() {
		size = code.Bounds().Dx()
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %w", err)
	}

	b := code.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*margin, b.Dy()+2*margin))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, b.Add(image.Pt(margin, margin)), code, b.Min, draw.Src)

	return canvas, nil
}

// Decode reads the first QR code in img
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize image: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}

	return res.GetText(), nil
}

// DecodeReader decodes a PNG, JPEG or GIF image and reads its QR code
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	return Decode(img)
}

// PayloadHash extracts the certificate hash carried by a QR payload.
// Verification links carry it in the hash query parameter; anything else
// is taken as the hash itself.
func PayloadHash(payload string) string {
	payload = strings.TrimSpace(payload)

	u, err := url.Parse(payload)
	if err != nil || u.Scheme == "" {
		return payload
	}
	if h := u.Query().Get("hash"); h != "" {
		return h
	}
	return payload
}
