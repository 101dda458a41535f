package notify

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidSound is returned for sound references that cannot be played.
var ErrInvalidSound = errors.New("invalid sound reference")

// DefaultSoundRef is accepted as an explicit alias for the default sound.
const DefaultSoundRef = "default"

// SoundResolver maps stored sound references to playable sounds.
// References are file names inside dir, absolute paths or file:// URIs.
type SoundResolver struct {
	dir string
}

func NewSoundResolver(dir string) *SoundResolver {
	return &SoundResolver{dir: dir}
}

// Resolve validates ref. An empty ref or DefaultSoundRef yields the default sound.
func (r *SoundResolver) Resolve(ref string) (Sound, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == DefaultSoundRef {
		return Sound{}, nil
	}

	path := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return Sound{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSound, u.Scheme)
		}
		path = u.Path
	} else if !filepath.IsAbs(path) {
		if r.dir == "" {
			return Sound{}, fmt.Errorf("%w: relative reference %q without sounds directory", ErrInvalidSound, ref)
		}
		path = filepath.Join(r.dir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Sound{}, fmt.Errorf("%w: %v", ErrInvalidSound, err)
	}
	if info.IsDir() {
		return Sound{}, fmt.Errorf("%w: %s is a directory", ErrInvalidSound, path)
	}
	return Sound{Ref: ref, Path: path}, nil
}
