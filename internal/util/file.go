package util

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffImportFile checks that the leading bytes match the extension:
// xlsx is a zip container, csv must be plain text.
func SniffImportFile(name string, reader io.Reader) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	mimeType := http.DetectContentType(buffer[:n])

	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV:
		if strings.HasPrefix(mimeType, "text/") {
			return ExtCSV, nil
		}
	case ExtXLSX:
		if mimeType == "application/zip" {
			return ExtXLSX, nil
		}
	default:
		return "", ErrUnsupportedFile
	}
	return "", fmt.Errorf("%w: content looks like %s", ErrUnsupportedFile, mimeType)
}
