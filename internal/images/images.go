// Package images prepares image payloads before they are attached to a
// multi-modal request.
package images

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension is the longest side, in pixels, an image is sent with.
	// Larger images are downscaled, the vision models resample them anyway.
	MaxDimension = 1568
	// JpegQuality is used when a downscaled image is re-encoded.
	JpegQuality = 85
)

var supportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
}

var ErrUnsupportedImage = errors.New("unsupported image format")

// Image is a normalized image, ready to be sent inline.
type Image struct {
	MimeType string
	Data     []byte
}

// DataUrl renders the image as a base64 `data:` URL.
func (i Image) DataUrl() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Read consumes r and normalizes the image it contains.
func Read(r io.Reader) (*Image, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read image")
	}

	return Normalize(buf, MaxDimension)
}

// DetectMimeType sniffs the MIME type of an image payload, and errors if it is
// not one of the formats vision models accept.
func DetectMimeType(data []byte) (string, error) {
	mime := mimetype.Detect(data)

	for _, supported := range supportedMimeTypes {
		if mime.Is(supported) {
			return supported, nil
		}
	}

	return "", errors.Wrapf(ErrUnsupportedImage, "detected '%s'", mime.String())
}

// Normalize checks the image format and downscales it so neither side exceeds
// maxDimension, preserving the aspect ratio. Images already within bounds are
// returned untouched. Resized images are re-encoded as JPEG, or as PNG when
// they have transparent pixels.
func Normalize(data []byte, maxDimension int) (*Image, error) {
	mimeType, err := DetectMimeType(data)
	if err != nil {
		return nil, err
	}

	if maxDimension <= 0 {
		return &Image{MimeType: mimeType, Data: data}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode image header")
	}

	if cfg.Width <= maxDimension && cfg.Height <= maxDimension {
		return &Image{MimeType: mimeType, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode image")
	}

	// resize.Thumbnail keeps the aspect ratio within the bounding box.
	resized := resize.Thumbnail(uint(maxDimension), uint(maxDimension), img, resize.Lanczos3)

	var out bytes.Buffer

	if !isOpaque(resized) {
		if err := png.Encode(&out, resized); err != nil {
			return nil, errors.Wrap(err, "could not encode resized image")
		}

		return &Image{MimeType: "image/png", Data: out.Bytes()}, nil
	}

	if err := jpeg.Encode(&out, resized, &jpeg.Options{Quality: JpegQuality}); err != nil {
		return nil, errors.Wrap(err, "could not encode resized image")
	}

	return &Image{MimeType: "image/jpeg", Data: out.Bytes()}, nil
}

// isOpaque reports whether img has no transparent pixels. JPEG has no alpha
// channel, so those images must stay PNG.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}

	return true
}
