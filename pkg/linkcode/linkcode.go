// Package linkcode renders survey access links as scannable PNG codes.
package linkcode

import (
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated images.
const DefaultSize = 256

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("linkcode: content is empty")

// Encoder turns link URLs into PNG images.
type Encoder interface {
	PNG(content string) ([]byte, error)
}

// QREncoder encodes content as a QR code with medium error correction.
type QREncoder struct {
	Size int
}

// NewEncoder returns a QR encoder producing images of size pixels; non-positive sizes use DefaultSize.
func NewEncoder(size int) QREncoder {
	if size <= 0 {
		size = DefaultSize
	}
	return QREncoder{Size: size}
}

// PNG implements Encoder.
func (e QREncoder) PNG(content string) ([]byte, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	size := e.Size
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
