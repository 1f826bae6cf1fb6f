// Package upload сохраняет изображения услуг на диск.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize ограничивает размер загружаемого изображения.
const MaxImageSize = 5 << 20

// ErrNotImage возвращается, если файл не является изображением допустимого формата.
var ErrNotImage = errors.New("images only: jpeg, jpg, png, gif, webp")

// ErrTooLarge возвращается, если файл превышает MaxImageSize.
var ErrTooLarge = errors.New("image is too large")

var allowedExt = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedMIME = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Storage хранит изображения в каталоге dir под сгенерированными именами.
type Storage struct {
	dir string
}

// NewStorage создаёт хранилище и при необходимости каталог.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir возвращает каталог хранилища.
func (s *Storage) Dir() string {
	return s.dir
}

// SaveImage проверяет расширение и содержимое файла и сохраняет его.
// Возвращает сгенерированное имя файла, по которому на него ссылается услуга.
func (s *Storage) SaveImage(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return "", ErrNotImage
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}

	if !isAllowedMIME(mimetype.Detect(data)) {
		return "", ErrNotImage
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return name, nil
}

// RemoveImage удаляет ранее сохранённый файл. Отсутствие файла не считается ошибкой.
func (s *Storage) RemoveImage(name string) error {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func isAllowedMIME(m *mimetype.MIME) bool {
	for _, allowed := range allowedMIME {
		if m.Is(allowed) {
			return true
		}
	}
	return false
}
