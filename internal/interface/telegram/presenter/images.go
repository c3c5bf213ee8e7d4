package presenter

import (
	"os"
	"path/filepath"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
)

// Images resolves rank pictures under a directory.
type Images struct {
	dir string
}

// NewImages creates a resolver for dir (IMAGES_PATH).
func NewImages(dir string) *Images {
	return &Images{dir: dir}
}

// RankImage returns the path of the picture for rank and whether the file
// exists. Callers fall back to plain text when it does not.
func (i *Images) RankImage(rank pet.Rank) (string, bool) {
	if i == nil || i.dir == "" || rank.Image == "" {
		return "", false
	}
	path := filepath.Join(i.dir, rank.Image)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}
