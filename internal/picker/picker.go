// Package picker implements the profile image picker on the local
// filesystem: "gallery access" is a confirmation prompt and picking is
// choosing a file path.
package picker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"firetodo/internal/prompt"
	"firetodo/internal/screens"
)

// MaxImageSize is the largest accepted image.
const MaxImageSize = 10 << 20

// Picker implements screens.ImagePicker.
type Picker struct {
	prompt prompt.Prompter

	mu      sync.Mutex
	granted bool
	preset  string
}

var _ screens.ImagePicker = (*Picker)(nil)

// New creates a picker asking questions through p.
func New(p prompt.Prompter) *Picker {
	return &Picker{prompt: p}
}

// Preset makes the next Pick use path without asking.
func (p *Picker) Preset(path string) {
	p.mu.Lock()
	p.preset = path
	p.mu.Unlock()
}

// RequestPermission asks once per process; a grant is remembered, a denial
// is asked again next time.
func (p *Picker) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()
	if granted {
		return true, nil
	}

	ok, err := prompt.Confirm(p.prompt, "Allow firetodo to read your pictures?")
	if err != nil {
		return false, err
	}
	if ok {
		p.mu.Lock()
		p.granted = true
		p.mu.Unlock()
	}
	return ok, nil
}

// Pick reads the chosen image. An empty path cancels.
func (p *Picker) Pick(ctx context.Context) (screens.Image, bool, error) {
	if err := ctx.Err(); err != nil {
		return screens.Image{}, false, err
	}
	p.mu.Lock()
	path := p.preset
	p.preset = ""
	p.mu.Unlock()

	if path == "" {
		var err error
		path, err = p.prompt.Prompt("Image path (empty to cancel): ")
		if err != nil {
			return screens.Image{}, false, err
		}
	}
	if path == "" {
		return screens.Image{}, false, nil
	}

	img, err := Load(path)
	if err != nil {
		return screens.Image{}, false, err
	}
	return img, true, nil
}

// Load reads an image file, expanding a leading "~/".
// The content type is sniffed and must be an image type.
func Load(path string) (screens.Image, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return screens.Image{}, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}

	info, err := os.Stat(path)
	if err != nil {
		return screens.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	if info.IsDir() {
		return screens.Image{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImageSize {
		return screens.Image{}, fmt.Errorf("%s is too large (%d bytes, max %d)", path, info.Size(), MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return screens.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return screens.Image{}, fmt.Errorf("%s is not an image (%s)", path, contentType)
	}
	return screens.Image{Data: data, ContentType: contentType}, nil
}
