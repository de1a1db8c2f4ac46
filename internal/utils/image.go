// internal/utils/image.go
package utils

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrNotAnImage = errors.New("data is not a PNG, JPEG or GIF image")

// DecodeSignatureImage accepts a data URL ("data:image/png;base64,...") or
// bare base64 and returns the decoded bytes when they hold a supported image.
func DecodeSignatureImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrNotAnImage
	}

	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return nil, ErrNotAnImage
		}
		encoded = encoded[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, ErrNotAnImage
		}
	}

	if !IsImage(data) {
		return nil, ErrNotAnImage
	}
	return data, nil
}

// IsImage checks the leading magic bytes for JPEG, PNG or GIF.
func IsImage(buffer []byte) bool {
	// Check for JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}

	// Check for PNG
	if len(buffer) >= 8 && buffer[0] == 0x89 && buffer[1] == 0x50 && buffer[2] == 0x4E && buffer[3] == 0x47 {
		return true
	}

	// Check for GIF
	if len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a") {
		return true
	}

	return false
}
