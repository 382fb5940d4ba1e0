// utils/render.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HexColors are the tints applied to the grayscale base sprites.
var HexColors = map[string]string{
	"red":     "#FF0000",
	"orange":  "#FF8C00",
	"yellow":  "#FFFF00",
	"green":   "#00A000",
	"blue":    "#0000FF",
	"purple":  "#800080",
	"pink":    "#FF69B4",
	"cyan":    "#00FFFF",
	"lime":    "#00FF00",
	"magenta": "#FF00FF",
	"teal":    "#008080",
	"indigo":  "#4B0082",
}

var ErrUnknownColor = errors.New("unknown color")

// Base sprites looked up under the assets directory.
const (
	CreatureSprite = "isopod.png"
	FishSprite     = "isofish.png"
	RainbowSprite  = "rainbowpillbug.png"
)

// RenderedImage is a tinted image on disk, plus its public URL when mirrored.
type RenderedImage struct {
	Path string
	URL  string
}

// Uploader mirrors a rendered file and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, key, path, contentType string) (string, error)
}

// Renderer produces tinted creature and fish images. A nil Renderer, or any
// render error, means the caller falls back to text.
type Renderer struct {
	AssetsDir string
	OutDir    string
	Mirror    Uploader
}

func NewRenderer(assetsDir, outDir string, mirror Uploader) *Renderer {
	return &Renderer{AssetsDir: assetsDir, OutDir: outDir, Mirror: mirror}
}

func (r *Renderer) RenderCreature(ctx context.Context, colorKey string) (*RenderedImage, error) {
	return r.render(ctx, CreatureSprite, "isopod", colorKey)
}

func (r *Renderer) RenderFish(ctx context.Context, colorKey string) (*RenderedImage, error) {
	return r.render(ctx, FishSprite, "isofish", colorKey)
}

// RainbowImage is the fixed jackpot artwork, served without tinting.
func (r *Renderer) RainbowImage(ctx context.Context) (*RenderedImage, error) {
	if r == nil {
		return nil, errors.New("renderer disabled")
	}
	path := filepath.Join(r.AssetsDir, RainbowSprite)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return r.publish(ctx, &RenderedImage{Path: path}, "rainbow")
}

func (r *Renderer) render(ctx context.Context, sprite, kind, colorKey string) (*RenderedImage, error) {
	if r == nil {
		return nil, errors.New("renderer disabled")
	}
	hex, ok := HexColors[strings.ToLower(colorKey)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColor, colorKey)
	}
	tint, err := parseHex(hex)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(r.AssetsDir, sprite))
	if err != nil {
		return nil, fmt.Errorf("open base sprite: %w", err)
	}
	defer f.Close()
	base, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode base sprite: %w", err)
	}

	if err := EnsureDir(r.OutDir); err != nil {
		return nil, err
	}
	out := filepath.Join(r.OutDir, FileSlug(kind, colorKey, uuid.NewString())+".png")
	dst, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	if err := png.Encode(dst, Tint(base, tint)); err != nil {
		dst.Close()
		os.Remove(out)
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, err
	}
	return r.publish(ctx, &RenderedImage{Path: out}, kind)
}

// publish mirrors the image when an uploader is configured. Mirror failures
// keep the local file.
func (r *Renderer) publish(ctx context.Context, img *RenderedImage, kind string) (*RenderedImage, error) {
	if r.Mirror == nil {
		return img, nil
	}
	key := fmt.Sprintf("renders/%s/%s", kind, filepath.Base(img.Path))
	url, err := r.Mirror.UploadFile(ctx, key, img.Path, "image/png")
	if err != nil {
		log.Printf("[RENDER] mirror upload failed for %s: %v", key, err)
		return img, nil
	}
	img.URL = url
	return img, nil
}

// Tint maps luminance onto a black-to-color ramp and keeps the alpha channel.
func Tint(src image.Image, tint color.RGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			lum := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, color.NRGBA{
				R: uint8(lum * uint32(tint.R) / 255),
				G: uint8(lum * uint32(tint.G) / 255),
				B: uint8(lum * uint32(tint.B) / 255),
				A: c.A,
			})
		}
	}
	return out
}

func parseHex(s string) (color.RGBA, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return color.RGBA{}, fmt.Errorf("bad hex color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// CleanupRenders removes rendered files older than maxAge.
func (r *Renderer) CleanupRenders(maxAge time.Duration) (int, error) {
	if r == nil {
		return 0, nil
	}
	return RemoveOlderThan(r.OutDir, maxAge, time.Now())
}
