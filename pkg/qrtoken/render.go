package qrtoken

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const defaultImageSize = 256

// Renderer turns token payloads into scannable PNG images.
type Renderer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewRenderer builds a renderer producing square images of size pixels.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = defaultImageSize
	}
	return &Renderer{size: size, level: qrcode.Medium}
}

// PNG renders payload as PNG bytes.
func (r *Renderer) PNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qrtoken: empty payload")
	}
	png, err := qrcode.Encode(payload, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("qrtoken: render png: %w", err)
	}
	return png, nil
}

// DataURL renders payload as an inline data URL suitable for an <img> tag.
func (r *Renderer) DataURL(payload string) (string, error) {
	png, err := r.PNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
