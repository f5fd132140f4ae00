// Package background turns an arbitrary photo into a page backdrop:
// resize to cover the page, soften with a Gaussian blur, then blend
// in synthetic film grain. Each transform is pure and the three
// compose in that order.
package background

import (
	"image"
	"math"
	"math/rand"

	xdraw "golang.org/x/image/draw"
)

type Options struct {
	BlurRadius    float64
	GrainStrength float64
	GrainSeed     int64
}

func DefaultOptions() Options {
	return Options{BlurRadius: 10, GrainStrength: 0.20}
}

// Style runs the full chain and returns a w x h backdrop.
func Style(src image.Image, w, h int, opts Options) *image.NRGBA {
	out := ResizeToCover(src, w, h)
	out = GaussianBlur(out, opts.BlurRadius)
	return Grain(out, opts.GrainStrength, opts.GrainSeed)
}

// ResizeToCover scales src so it covers w x h without distortion and
// crops the overflow evenly on both sides.
func ResizeToCover(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || w <= 0 || h <= 0 {
		return dst
	}
	// Crop the source to the target aspect ratio, centered, and let
	// the kernel do a single resampling pass.
	srcAspect := float64(sb.Dx()) / float64(sb.Dy())
	dstAspect := float64(w) / float64(h)
	crop := sb
	if srcAspect > dstAspect {
		cw := int(math.Round(float64(sb.Dy()) * dstAspect))
		x0 := sb.Min.X + (sb.Dx()-cw)/2
		crop = image.Rect(x0, sb.Min.Y, x0+cw, sb.Max.Y)
	} else if srcAspect < dstAspect {
		ch := int(math.Round(float64(sb.Dx()) / dstAspect))
		y0 := sb.Min.Y + (sb.Dy()-ch)/2
		crop = image.Rect(crop.Min.X, y0, crop.Max.X, y0+ch)
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Src, nil)
	return dst
}

// GaussianBlur applies a separable Gaussian with sigma = radius/2,
// truncated at three sigma. Radius zero returns an untouched copy.
func GaussianBlur(src image.Image, radius float64) *image.NRGBA {
	b := src.Bounds()
	in := toNRGBA(src)
	if radius <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return in
	}
	sigma := radius / 2
	half := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*half+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	w, h := b.Dx(), b.Dy()
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	// horizontal pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a float64
			for k, kv := range kernel {
				sx := clamp(x+k-half, 0, w-1)
				i := in.PixOffset(sx, y)
				r += kv * float64(in.Pix[i])
				g += kv * float64(in.Pix[i+1])
				bl += kv * float64(in.Pix[i+2])
				a += kv * float64(in.Pix[i+3])
			}
			o := tmp.PixOffset(x, y)
			tmp.Pix[o] = clampByte(r)
			tmp.Pix[o+1] = clampByte(g)
			tmp.Pix[o+2] = clampByte(bl)
			tmp.Pix[o+3] = clampByte(a)
		}
	}
	// vertical pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a float64
			for k, kv := range kernel {
				sy := clamp(y+k-half, 0, h-1)
				i := tmp.PixOffset(x, sy)
				r += kv * float64(tmp.Pix[i])
				g += kv * float64(tmp.Pix[i+1])
				bl += kv * float64(tmp.Pix[i+2])
				a += kv * float64(tmp.Pix[i+3])
			}
			o := out.PixOffset(x, y)
			out.Pix[o] = clampByte(r)
			out.Pix[o+1] = clampByte(g)
			out.Pix[o+2] = clampByte(bl)
			out.Pix[o+3] = clampByte(a)
		}
	}
	return out
}

// Grain blends per-channel Gaussian noise (mean 128, stddev 30,
// clipped to byte range) into the image: out = (1-s)*src + s*noise.
// The alpha channel keeps its source values. A fixed seed gives
// identical grain on every run.
func Grain(src image.Image, strength float64, seed int64) *image.NRGBA {
	out := toNRGBA(src)
	if strength <= 0 {
		return out
	}
	if strength > 1 {
		strength = 1
	}
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			noise := rng.NormFloat64()*30 + 128
			if noise < 0 {
				noise = 0
			} else if noise > 255 {
				noise = 255
			}
			v := (1-strength)*float64(out.Pix[i+c]) + strength*noise
			out.Pix[i+c] = clampByte(v)
		}
	}
	return out
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
