package document

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/errors"
)

// DataURL returns img as a PNG data URL.
func DataURL(img image.Image) (string, error) {
	s, err := encodeImage(img)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeEncode, err, "encode data URL")
	}
	return "data:image/png;base64," + s, nil
}

// BytesDataURL wraps already-encoded image bytes into a data URL.
func BytesDataURL(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its raw bytes and MIME type.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", errors.New(errors.ErrCodeDecode, "not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New(errors.ErrCodeDecode, "data URL has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", errors.New(errors.ErrCodeDecode, "data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeDecode, err, "data URL payload")
	}
	return data, mimeType, nil
}

// DecodeDataURL decodes a base64 image data URL.
func DecodeDataURL(s string) (image.Image, error) {
	data, _, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "data URL image")
	}
	return img, nil
}
