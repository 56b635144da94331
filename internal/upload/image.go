package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// MaxSize is the largest proof file accepted, in bytes.
const MaxSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported proof file type")
	ErrTooLarge        = errors.New("proof file too large")
)

// File is a prepared proof ready to be forwarded to the backend.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Reader() io.Reader { return bytes.NewReader(f.Data) }

// Prepare checks a payment proof and shrinks images wider than maxWidth.
// Images are re-encoded as JPEG under a random name; PDFs pass through
// unchanged. A maxWidth of 0 keeps the original size.
func Prepare(name string, r io.Reader, maxWidth uint) (File, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return File{}, fmt.Errorf("read proof: %w", err)
	}
	if len(data) > MaxSize {
		return File{}, ErrTooLarge
	}
	ctype := http.DetectContentType(data)

	var img image.Image
	switch ctype {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "application/pdf":
		return File{Name: pdfName(name), ContentType: ctype, Data: data}, nil
	default:
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ctype)
	}
	if err != nil {
		return File{}, fmt.Errorf("decode proof image: %w", err)
	}

	if maxWidth > 0 && uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return File{}, fmt.Errorf("encode proof image: %w", err)
	}
	return File{
		Name:        fmt.Sprintf("%s.jpg", uuid.New().String()),
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

func pdfName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = uuid.New().String()
	}
	return base + ".pdf"
}
