package export

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// decodeDataURI splits a data URI into its media type and raw bytes.
// Capture results arrive as "data:image/png;base64,....".
func decodeDataURI(uri string) (mediaType string, data []byte, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("export: not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("export: malformed data URI")
	}
	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	mediaType = meta
	base64Encoded := false
	if i := strings.IndexByte(meta, ';'); i >= 0 {
		mediaType = meta[:i]
		base64Encoded = strings.Contains(meta[i:], "base64")
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if base64Encoded {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("export: decode data URI: %w", err)
		}
		return mediaType, data, nil
	}
	return mediaType, []byte(payload), nil
}

// extensionFor maps a capture media type to a file extension.
func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
