package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// pngPayload renders a small solid image and returns it base64 encoded.
func pngPayload(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no header", "QUJD", "QUJD"},
		{"data uri", "data:image/png;base64,QUJD", "QUJD"},
		{"only first comma", "a,b,c", "b,c"},
		{"trailing comma", "header,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripDataURI(tt.in))
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Run("padded", func(t *testing.T) {
		data, err := DecodeBase64("aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("unpadded", func(t *testing.T) {
		data, err := DecodeBase64("aGVsbG8")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		data, err := DecodeBase64("data:text/plain;base64, aGVsbG8=\n")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeBase64("not-base64!!")
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestDecode(t *testing.T) {
	t.Run("invalid base64", func(t *testing.T) {
		_, err := Decode("not-base64!!")
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := Decode("")
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("bytes that are not an image", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("definitely not a png"))

		_, err := Decode(payload)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("png", func(t *testing.T) {
		mat, err := Decode(pngPayload(t, 32, 24))
		require.NoError(t, err)
		defer mat.Close()

		assert.Equal(t, 24, mat.Rows())
		assert.Equal(t, 32, mat.Cols())
		assert.Equal(t, 3, mat.Channels())
		assert.Equal(t, gocv.MatTypeCV8UC3, mat.Type())
	})

	t.Run("png with data uri header", func(t *testing.T) {
		mat, err := Decode("data:image/png;base64," + pngPayload(t, 10, 10))
		require.NoError(t, err)
		defer mat.Close()

		assert.Equal(t, 10, mat.Rows())
	})
}
