package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// The vault accepts arbitrary files, but a few scriptable types are
// blocked outright since download URLs are served from the bucket origin.
var blockedExt = map[string]bool{
	".html": true,
	".htm":  true,
	".svg":  true,
	".xml":  true,
	".js":   true,
}

// ValidateFileBySniff checks the filename and the first bytes of the
// upload. Returns the detected mime type or an error.
func ValidateFileBySniff(filename string, head []byte) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", errors.New("invalid file name")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if blockedExt[ext] {
		return "", errors.New("this file type is not allowed")
	}

	detected := http.DetectContentType(head)
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("HTML content is not allowed")
	}
	if detected == "image/svg+xml" || strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") {
		return "", errors.New("SVG/XML content is not allowed")
	}
	return detected, nil
}
