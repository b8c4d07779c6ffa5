package util

import (
	"net/http"
	"path/filepath"
	"strings"
)

func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	return "application/octet-stream"
}

// PickImageMIME берёт явный MIME, затем сигнатуру, затем http.DetectContentType.
// Всё, что не image/*, сводится к image/jpeg.
func PickImageMIME(explicit string, data []byte) string {
	if exp := strings.TrimSpace(explicit); strings.HasPrefix(exp, "image/") {
		return exp
	}
	if m := SniffMimeHTTP(data); m != "application/octet-stream" {
		return m
	}
	if len(data) > 0 {
		if m := http.DetectContentType(data); strings.HasPrefix(m, "image/") {
			return m
		}
	}
	return "image/jpeg"
}

// ImageExt возвращает безопасное расширение файла (с точкой) по имени клиента
// или по содержимому.
func ImageExt(filename string, data []byte) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif":
		return ext
	}
	switch PickImageMIME("", data) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	}
	return ".jpg"
}
