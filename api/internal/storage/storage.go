// Package storage хранит загрузки и аннотированные изображения на диске
// и строит публичные URL для них.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartseg/api/internal/util"
)

const (
	UploadsPrefix = "/static/uploads/"
	OutputPrefix  = "/static/output/"
)

type Files struct {
	UploadDir string
	OutputDir string
	BaseURL   string

	now func() time.Time
}

func New(uploadDir, outputDir, baseURL string) (*Files, error) {
	for _, d := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir %s: %w", d, err)
		}
	}
	return &Files{
		UploadDir: uploadDir,
		OutputDir: outputDir,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}, nil
}

// SaveUpload пишет загрузку под случайным именем; имя клиента используется только для расширения.
func (f *Files) SaveUpload(clientName string, data []byte) (string, error) {
	name := uuid.NewString() + util.ImageExt(clientName, data)
	if err := os.WriteFile(filepath.Join(f.UploadDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return name, nil
}

// SaveOutput пишет аннотированный JPEG как output_<unix>_<8hex>.jpg.
func (f *Files) SaveOutput(jpeg []byte) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("save output: %w", err)
	}
	name := fmt.Sprintf("output_%d_%s.jpg", f.now().Unix(), hex.EncodeToString(b[:]))
	if err := os.WriteFile(filepath.Join(f.OutputDir, name), jpeg, 0o644); err != nil {
		return "", fmt.Errorf("save output: %w", err)
	}
	return name, nil
}

func (f *Files) UploadURL(name string) string { return f.BaseURL + UploadsPrefix + name }
func (f *Files) OutputURL(name string) string { return f.BaseURL + OutputPrefix + name }

// Sweep удаляет файлы старше olderThan в обеих директориях и возвращает их число.
func (f *Files) Sweep(olderThan time.Duration) (int, error) {
	cutoff := f.now().Add(-olderThan)
	removed := 0
	for _, dir := range []string{f.UploadDir, f.OutputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("sweep %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				log.Printf("sweep: remove %s: %v", e.Name(), err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
