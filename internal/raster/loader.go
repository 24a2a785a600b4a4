// Package raster loads ordered sequences of binary slice masks from disk.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Registered decoders for candidate mask formats.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
)

// Threshold is the luminance boundary of an 8-bit gray mask.
// Pixels strictly brighter than Threshold are exposed.
const Threshold = 128

// DefaultExtensions are the file extensions treated as slice masks.
var DefaultExtensions = []string{".png", ".bmp", ".tif", ".tiff"}

// Loader reads a directory of equal-width slice masks.
type Loader struct {
	PixelsPerRow int
	Extensions   []string
	logger       ports.Logger
}

// NewLoader creates a loader that requires every mask to be pixelsPerRow wide.
func NewLoader(pixelsPerRow int, logger ports.Logger) *Loader {
	if logger == nil {
		logger = logAdapter.Discard
	}
	return &Loader{
		PixelsPerRow: pixelsPerRow,
		Extensions:   DefaultExtensions,
		logger:       logger,
	}
}

// Candidates returns the mask files in dir sorted by filename ascending.
func (l *Loader) Candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !l.IsCandidate(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// IsCandidate reports whether name has one of the loader's mask extensions.
func (l *Loader) IsCandidate(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range l.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Load reads every candidate mask in dir, in filename order, and thresholds it.
// Returns domain.ErrEmptyInput when dir holds no candidates and a
// *domain.ShapeError when a mask is not PixelsPerRow wide.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.Bitmap, error) {
	paths, err := l.Candidates(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyInput, dir)
	}

	bitmaps := make([]domain.Bitmap, 0, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bm, err := LoadFile(p, i)
		if err != nil {
			return nil, err
		}
		if bm.Width != l.PixelsPerRow {
			return nil, &domain.ShapeError{Path: p, Expected: l.PixelsPerRow, Actual: bm.Width}
		}
		bitmaps = append(bitmaps, bm)

		l.logger.Debug("loaded mask",
			ports.String("file", bm.Name),
			ports.Int("index", i),
			ports.Int("width", bm.Width),
			ports.Int("height", bm.Height),
		)
	}

	l.logger.Info("loaded mask sequence",
		ports.String("dir", dir),
		ports.Int("masks", len(bitmaps)),
	)
	return bitmaps, nil
}

// LoadFile decodes one image and thresholds it into a bitmap with the given index.
func LoadFile(path string, index int) (domain.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Bitmap{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return domain.Bitmap{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return Threshold8(img, index, filepath.Base(path)), nil
}

// Threshold8 converts img to 8-bit gray (ITU-R 601 luma) and marks every pixel
// brighter than Threshold as exposed. Alpha is ignored: luma comes from the
// straight (non-premultiplied) color, so a transparent white pixel is exposed.
func Threshold8(img image.Image, index int, name string) domain.Bitmap {
	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	switch {
	case ok && b.Min == (image.Point{}):
	case isOpaque(img):
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	default:
		gray = straightGray(img)
	}

	bm := domain.NewBitmap(index, name, b.Dx(), b.Dy())
	for y := 0; y < bm.Height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bm.Width]
		for x, v := range row {
			if v > Threshold {
				bm.Set(x, y, true)
			}
		}
	}
	return bm
}

func isOpaque(img image.Image) bool {
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}

// straightGray converts img to gray per pixel, discarding alpha instead of
// compositing onto black the way draw.Src does with premultiplied colors.
func straightGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(c).(color.Gray))
		}
	}
	return gray
}
