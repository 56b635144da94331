package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepare_ShrinksWideImage(t *testing.T) {
	f, err := Prepare("recibo.png", bytes.NewReader(pngOf(t, 400, 200)), 100)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", f.ContentType)
	assert.True(t, strings.HasSuffix(f.Name, ".jpg"))

	cfg, err := jpeg.DecodeConfig(f.Reader())
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestPrepare_KeepsNarrowImage(t *testing.T) {
	f, err := Prepare("recibo.png", bytes.NewReader(pngOf(t, 80, 40)), 100)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(f.Reader())
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Width)
}

func TestPrepare_PDFPassesThrough(t *testing.T) {
	body := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	f, err := Prepare("dir/comprobante.pdf", bytes.NewReader(body), 100)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, "comprobante.pdf", f.Name)
	assert.Equal(t, body, f.Data)
}

func TestPrepare_Rejects(t *testing.T) {
	_, err := Prepare("notes.txt", strings.NewReader("hello"), 100)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Prepare("big.pdf", bytes.NewReader(make([]byte, MaxSize+1)), 100)
	assert.ErrorIs(t, err, ErrTooLarge)
}
