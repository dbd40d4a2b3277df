// Package textures embeds the image assets sampled by the ray-march pass:
// an equirectangular skybox and a tiling value-noise texture for the disk
// turbulence.
package textures

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/draw"
	"math/rand"

	_ "image/png"
)

//go:embed skybox.png
//go:embed noise.png
var FS embed.FS

// decode reads an embedded image and converts it to RGBA, the layout the
// staging upload expects.
func decode(name string) (*image.RGBA, error) {
	data, err := FS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading embedded %s: %w", name, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	b := img.Bounds()
	rgbaImg := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgbaImg, rgbaImg.Bounds(), img, b.Min, draw.Src)
	return rgbaImg, nil
}

// Noise returns the tiling noise texture. There is no fallback; the disk
// shading cannot run without it.
func Noise() (*image.RGBA, error) {
	return decode("noise.png")
}

// Skybox returns the environment texture. When the embedded asset is
// missing or broken it degrades to a generated starfield instead of
// failing, so the visualizer still comes up with a recognizable sky.
func Skybox() *image.RGBA {
	img, err := decode("skybox.png")
	if err != nil {
		return placeholderStarfield()
	}
	return img
}

// placeholderStarfield paints sparse white stars on near-black.
func placeholderStarfield() *image.RGBA {
	const w, h = 1024, 512

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 3
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1800; i++ {
		x, y := rng.Intn(w), rng.Intn(h)
		v := uint8(90 + rng.Intn(166))
		o := img.PixOffset(x, y)
		img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
	}

	return img
}
