// Package imaging decodes client-supplied image payloads into OpenCV matrices.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ErrDecode is returned when a payload is not valid base64 or the decoded
// bytes are not a supported image container.
var ErrDecode = errors.New("decode image")

// StripDataURI removes a data-URI header such as "data:image/png;base64,".
// Everything up to and including the first comma is dropped.
func StripDataURI(payload string) string {
	if _, rest, found := strings.Cut(payload, ","); found {
		return rest
	}
	return payload
}

// DecodeBase64 decodes the payload body, accepting padded and unpadded input.
func DecodeBase64(payload string) ([]byte, error) {
	body := strings.TrimSpace(StripDataURI(payload))

	data, err := base64.StdEncoding.DecodeString(body)
	if err == nil {
		return data, nil
	}
	if !strings.HasSuffix(body, "=") {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(body); rawErr == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
}

// Decode turns a base64 image payload into an 8-bit, 3-channel BGR matrix of
// height x width. The caller owns the returned Mat and must Close it.
func Decode(payload string) (gocv.Mat, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return gocv.Mat{}, err
	}
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("%w: unsupported image format", ErrDecode)
	}

	return mat, nil
}
