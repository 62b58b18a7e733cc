// Package idgen produces short hexadecimal device identifiers and renders
// them into provisioning templates.
package idgen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Ning0612/devmanager/internal/domain"
)

const (
	// MaxLength is the number of hex digits in a UUID
	MaxLength = 32

	// Placeholder is replaced by the generated ID in templates
	Placeholder = "{UID}"
)

// Generate returns length hex characters taken from a random UUID,
// upper-cased when upper is set
func Generate(length int, upper bool) (string, error) {
	if length < 1 || length > MaxLength {
		return "", fmt.Errorf("%w: %d (want 1..%d)", domain.ErrInvalidLength, length, MaxLength)
	}

	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}

	id := strings.ReplaceAll(u.String(), "-", "")[:length]
	if upper {
		id = strings.ToUpper(id)
	}
	return id, nil
}

// Render substitutes every placeholder in tpl with id
func Render(tpl, id string) string {
	return strings.ReplaceAll(tpl, Placeholder, id)
}

// LoadTemplate reads a template file. A missing file yields an empty
// template and no error, so callers fall back to the bare ID.
func LoadTemplate(path string) (string, bool, error) {
	if path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), true, nil
}

// Produce generates an ID and renders it through the template at tplPath
// when that file exists. It returns the ID and the text to emit.
func Produce(length int, upper bool, tplPath string) (id, text string, err error) {
	id, err = Generate(length, upper)
	if err != nil {
		return "", "", err
	}

	tpl, ok, err := LoadTemplate(tplPath)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return id, id, nil
	}
	return id, Render(tpl, id), nil
}

// WriteFile writes text to path, creating parent directories
func WriteFile(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
