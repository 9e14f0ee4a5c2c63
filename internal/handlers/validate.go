package handlers

import (
	"io"
	"mime"
	"net/http"
)

// тела импорта ограничены, чтобы не читать произвольно большие файлы
const maxImportBody = 10 << 20

func readBody(r *http.Request) (string, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}
