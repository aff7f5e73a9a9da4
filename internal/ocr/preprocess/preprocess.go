// Package preprocess implements the image transforms used to build OCR
// variants. All functions return new images and never modify their input.
package preprocess

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// Channel selects a single plane of a colour image
type Channel int

const (
	ChannelR Channel = iota
	ChannelG
	ChannelB
	// ChannelV is the HSV value plane, max(R, G, B)
	ChannelV
)

func (c Channel) String() string {
	switch c {
	case ChannelR:
		return "r"
	case ChannelG:
		return "g"
	case ChannelB:
		return "b"
	default:
		return "v"
	}
}

// ToGray converts any image to 8-bit grayscale with its origin at (0, 0)
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// Upscale enlarges the image by factor using a cubic filter. Factors <= 1 are a no-op.
func Upscale(img image.Image, factor float64) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	return imaging.Resize(img, w, 0, imaging.CatmullRom)
}

// Grayscale returns the luminance image
func Grayscale(img image.Image) *image.Gray {
	return ToGray(imaging.Grayscale(img))
}

// ExtractChannel returns one plane of img as grayscale
func ExtractChannel(img image.Image, ch Channel) *image.Gray {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			switch ch {
			case ChannelR:
				out[x] = r
			case ChannelG:
				out[x] = g
			case ChannelB:
				out[x] = b
			default:
				out[x] = max(r, g, b)
			}
		}
	}
	return dst
}

// Sharpen applies an unsharp mask
func Sharpen(src *image.Gray, sigma float64) *image.Gray {
	return ToGray(imaging.Sharpen(src, sigma))
}

// Invert returns the negative image
func Invert(src *image.Gray) *image.Gray {
	return ToGray(imaging.Invert(src))
}

// AutoContrast stretches the intensity range to the full 0..255 scale
func AutoContrast(src *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, p := range src.Pix {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	dst := image.NewGray(src.Rect)
	if hi <= lo {
		copy(dst.Pix, src.Pix)
		return dst
	}
	scale := 255.0 / float64(hi-lo)
	for i, p := range src.Pix {
		dst.Pix[i] = uint8(math.Round(float64(p-lo) * scale))
	}
	return dst
}

// OtsuThreshold returns the threshold maximising between-class variance
func OtsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	for _, p := range src.Pix {
		hist[p]++
	}
	total := len(src.Pix)
	if total == 0 {
		return 127
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, best float64
	var wB int
	threshold := uint8(0)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// Otsu binarizes with Otsu's threshold; pixels above it become white
func Otsu(src *image.Gray, invert bool) *image.Gray {
	return Binarize(src, OtsuThreshold(src), invert)
}

// Binarize maps pixels above t to 255 and the rest to 0 (reversed when invert)
func Binarize(src *image.Gray, t uint8, invert bool) *image.Gray {
	on, off := uint8(255), uint8(0)
	if invert {
		on, off = off, on
	}
	dst := image.NewGray(src.Rect)
	for i, p := range src.Pix {
		if p > t {
			dst.Pix[i] = on
		} else {
			dst.Pix[i] = off
		}
	}
	return dst
}

// AdaptiveGaussian thresholds each pixel against the Gaussian-weighted mean
// of its block neighbourhood minus c
func AdaptiveGaussian(src *image.Gray, blockSize int, c float64, invert bool) *image.Gray {
	// sigma as derived from the kernel size for a Gaussian block
	sigma := 0.3*(float64(blockSize-1)*0.5-1) + 0.8
	mean := ToGray(imaging.Blur(src, sigma))

	on, off := uint8(255), uint8(0)
	if invert {
		on, off = off, on
	}
	dst := image.NewGray(src.Rect)
	for i, p := range src.Pix {
		if float64(p) > float64(mean.Pix[i])-c {
			dst.Pix[i] = on
		} else {
			dst.Pix[i] = off
		}
	}
	return dst
}

// CLAHE applies contrast-limited adaptive histogram equalization over a
// tilesX x tilesY grid with bilinear interpolation between tile mappings
func CLAHE(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	if w == 0 || h == 0 {
		return dst
	}
	tilesX = max(1, min(tilesX, w))
	tilesY = max(1, min(tilesY, h))
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0, ty1, ay := neighbours(fy, tilesY)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0, tx1, ax := neighbours(fx, tilesX)

			p := src.Pix[y*src.Stride+x]
			v00 := float64(luts[ty0*tilesX+tx0][p])
			v01 := float64(luts[ty0*tilesX+tx1][p])
			v10 := float64(luts[ty1*tilesX+tx0][p])
			v11 := float64(luts[ty1*tilesX+tx1][p])
			top := v00*(1-ax) + v01*ax
			bottom := v10*(1-ax) + v11*ax
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(top*(1-ay) + bottom*ay))
		}
	}
	return dst
}

func neighbours(f float64, n int) (int, int, float64) {
	i0 := int(math.Floor(f))
	a := f - float64(i0)
	i1 := i0 + 1
	if i0 < 0 {
		i0, a = 0, 0
	}
	if i1 > n-1 {
		i1 = n - 1
	}
	if i0 > n-1 {
		i0 = n - 1
	}
	return i0, i1, a
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride+x0 : y*src.Stride+x1]
		for _, p := range row {
			hist[p]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	limit := max(1, int(clipLimit*float64(area)/256))
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	bonus, rest := excess/256, excess%256
	for i := range hist {
		hist[i] += bonus
		if i < rest {
			hist[i]++
		}
	}

	var lut [256]uint8
	cdf := 0
	for i, c := range hist {
		cdf += c
		lut[i] = uint8(min(255, int(math.Round(float64(cdf)*255/float64(area)))))
	}
	return lut
}

// Erode is a 3x3 rectangular minimum filter
func Erode(src *image.Gray) *image.Gray {
	return morph(src, func(a, b uint8) uint8 { return min(a, b) }, 255)
}

// Dilate is a 3x3 rectangular maximum filter
func Dilate(src *image.Gray) *image.Gray {
	return morph(src, func(a, b uint8) uint8 { return max(a, b) }, 0)
}

func morph(src *image.Gray, pick func(a, b uint8) uint8, init uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := init
			for dy := -1; dy <= 1; dy++ {
				yy := min(max(y+dy, 0), h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := min(max(x+dx, 0), w-1)
					v = pick(v, src.Pix[yy*src.Stride+xx])
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// TopHat returns src minus its morphological opening (bright details)
func TopHat(src *image.Gray) *image.Gray {
	return subtract(src, Dilate(Erode(src)))
}

// BlackHat returns the morphological closing minus src (dark details)
func BlackHat(src *image.Gray) *image.Gray {
	return subtract(Erode(Dilate(src)), src)
}

func subtract(a, b *image.Gray) *image.Gray {
	dst := image.NewGray(a.Rect)
	for i := range a.Pix {
		if a.Pix[i] > b.Pix[i] {
			dst.Pix[i] = a.Pix[i] - b.Pix[i]
		}
	}
	return dst
}
