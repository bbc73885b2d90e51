package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent   = errors.New("qr code content cannot be empty")
	ErrFailedToRender = errors.New("failed to render qr code")
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 2048
)

// PNG renders content as a square PNG of size pixels. Sizes outside
// [MinSize, MaxSize] are clamped; zero or negative selects DefaultSize.
// Medium recovery keeps otpauth URIs scannable from a phone screen.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	switch {
	case size <= 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}

	img, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrFailedToRender, err)
	}
	return img, nil
}

// DataURI renders content as a data:image/png;base64 URI for direct
// embedding in an img tag.
func DataURI(content string, size int) (string, error) {
	img, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}
