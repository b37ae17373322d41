package avatars

import (
	"mime"
	"path"
	"strings"
	"unicode"
)

// extensions maps the accepted image media types to the extension used when
// the client sends no usable file name.
var extensions = map[string]string{
	"image/gif":  ".gif",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// imageType normalizes a Content-Type header value and reports whether it is
// an accepted image type. Parameters such as charset are ignored.
func imageType(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return "", false
	}
	mediaType = strings.ToLower(mediaType)
	_, ok := extensions[mediaType]
	return mediaType, ok
}

// cleanFileName reduces a client file name to a single safe path segment.
// It returns "" when nothing usable is left.
func cleanFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return '-'
		}
		return r
	}, base)
	return strings.Trim(cleaned, "-_.")
}
