// Package imaging inspects downloaded image payloads and prepares them for
// the response: type detection, dimensions, optional downscale, base64.
package imaging

import (
	"encoding/base64"

	"github.com/h2non/bimg"
	"github.com/rotisserie/eris"

	"github.com/fleveque/webacquire/internal/model"
)

// ErrNotImage is returned when the payload isn't a decodable image.
var ErrNotImage = eris.New("unsupported content type")

// DefaultMaxDimension is the longest side kept before downscaling.
const DefaultMaxDimension = 2048

// mimeTypes maps bimg's type names to MIME types.
var mimeTypes = map[bimg.ImageType]string{
	bimg.JPEG: "image/jpeg",
	bimg.PNG:  "image/png",
	bimg.WEBP: "image/webp",
	bimg.GIF:  "image/gif",
	bimg.TIFF: "image/tiff",
	bimg.SVG:  "image/svg+xml",
	bimg.HEIF: "image/heif",
	bimg.AVIF: "image/avif",
}

// Processor prepares images for the response envelope.
// It uses bimg (Go bindings for libvips), which requires libvips on the host.
type Processor struct {
	maxDimension int
}

// NewProcessor creates a Processor. maxDimension <= 0 disables downscaling.
func NewProcessor(maxDimension int) *Processor {
	return &Processor{maxDimension: maxDimension}
}

// Prepare detects the image type and size, downscales images whose longest
// side exceeds the limit (aspect ratio preserved, original format kept), and
// returns the base64-encoded result.
func (p *Processor) Prepare(data []byte) (*model.ImageData, error) {
	if len(data) == 0 {
		return nil, eris.Wrap(ErrNotImage, "empty payload")
	}

	kind := bimg.DetermineImageType(data)
	mime, ok := mimeTypes[kind]
	if !ok {
		return nil, eris.Wrapf(ErrNotImage, "payload is %s", bimg.ImageTypeName(kind))
	}

	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, eris.Wrap(ErrNotImage, err.Error())
	}

	out := &model.ImageData{
		MimeType: mime,
		Width:    size.Width,
		Height:   size.Height,
	}

	// SVG is vector; its pixel size is nominal, so it is passed through.
	if p.maxDimension > 0 && kind != bimg.SVG && longest(size) > p.maxDimension {
		resized, w, h, err := p.downscale(img, size)
		if err != nil {
			return nil, err
		}
		data = resized
		out.Width, out.Height = w, h
		out.Downscaled = true
	}

	out.Bytes = len(data)
	out.Data = base64.StdEncoding.EncodeToString(data)
	return out, nil
}

// downscale fits the image inside a maxDimension square. Setting only one of
// Width/Height makes libvips keep the aspect ratio.
func (p *Processor) downscale(img *bimg.Image, size bimg.ImageSize) ([]byte, int, int, error) {
	opts := bimg.Options{}
	if size.Width >= size.Height {
		opts.Width = p.maxDimension
	} else {
		opts.Height = p.maxDimension
	}

	resized, err := img.Process(opts)
	if err != nil {
		return nil, 0, 0, eris.Wrap(err, "downscaling image")
	}

	got, err := bimg.NewImage(resized).Size()
	if err != nil {
		return nil, 0, 0, eris.Wrap(err, "reading downscaled size")
	}
	return resized, got.Width, got.Height, nil
}

func longest(s bimg.ImageSize) int {
	if s.Width > s.Height {
		return s.Width
	}
	return s.Height
}
