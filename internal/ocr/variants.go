package ocr

import (
	"image"
	"sync"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/ocr/preprocess"
)

var (
	fastPageSegModes = []int{6, 11}
	fullPageSegModes = []int{6, 11, 3, 7, 8, 4, 13}
)

const (
	claheClip       = 2.2
	claheTiles      = 8
	adaptiveBlock   = 31
	adaptiveC       = 9
	sharpenSigma    = 1.0
	fallbackPageSeg = 6
)

// variant is a named, lazily built preprocessing of the source image
type variant struct {
	name  string
	build func() image.Image
}

// lazy memoizes an expensive intermediate shared by several variants
func lazy(fn func() *image.Gray) func() *image.Gray {
	var once sync.Once
	var img *image.Gray
	return func() *image.Gray {
		once.Do(func() { img = fn() })
		return img
	}
}

// pageSegModes returns the unrestricted and char-whitelist page segmentation
// modes tried for each variant
func pageSegModes(mode core.OCRMode) (plain, whitelist []int) {
	if mode == core.OCRModeAggressive {
		return fullPageSegModes, fullPageSegModes
	}
	return fastPageSegModes, fastPageSegModes[:1]
}

// buildVariants returns the ordered variant list for mode. Nothing is
// computed until a variant's build func runs.
func buildVariants(src image.Image, mode core.OCRMode) []variant {
	if mode == core.OCRModeAggressive {
		return aggressiveVariants(src)
	}
	return fastVariants(src)
}

func fastVariants(src image.Image) []variant {
	clahe := lazy(func() *image.Gray {
		return preprocess.CLAHE(preprocess.ExtractChannel(src, preprocess.ChannelV), claheClip, claheTiles, claheTiles)
	})
	return []variant{
		{name: "v_clahe_otsu", build: func() image.Image { return preprocess.Otsu(clahe(), false) }},
		{name: "v_clahe_otsu_inv", build: func() image.Image { return preprocess.Otsu(clahe(), true) }},
		{name: "gray_sharp", build: func() image.Image {
			return preprocess.Sharpen(preprocess.Grayscale(src), sharpenSigma)
		}},
	}
}

func aggressiveVariants(src image.Image) []variant {
	var out []variant
	for _, ch := range []preprocess.Channel{preprocess.ChannelR, preprocess.ChannelG, preprocess.ChannelB, preprocess.ChannelV} {
		channel := lazy(func() *image.Gray { return preprocess.ExtractChannel(src, ch) })
		clahe := lazy(func() *image.Gray { return preprocess.CLAHE(channel(), claheClip, claheTiles, claheTiles) })

		bases := []struct {
			name string
			img  func() *image.Gray
		}{
			{"clahe", clahe},
			{"tophat", lazy(func() *image.Gray { return preprocess.TopHat(clahe()) })},
			{"blackhat", lazy(func() *image.Gray { return preprocess.BlackHat(clahe()) })},
		}

		for _, base := range bases {
			prefix := ch.String() + "_" + base.name
			img := base.img
			out = append(out,
				variant{name: prefix + "_otsu", build: func() image.Image { return preprocess.Otsu(img(), false) }},
				variant{name: prefix + "_otsu_inv", build: func() image.Image { return preprocess.Otsu(img(), true) }},
				variant{name: prefix + "_adapt", build: func() image.Image {
					return preprocess.AdaptiveGaussian(img(), adaptiveBlock, adaptiveC, false)
				}},
				variant{name: prefix + "_adapt_inv", build: func() image.Image {
					return preprocess.AdaptiveGaussian(img(), adaptiveBlock, adaptiveC, true)
				}},
			)
		}

		out = append(out, variant{name: ch.String() + "_sharp", build: func() image.Image {
			return preprocess.Sharpen(channel(), sharpenSigma)
		}})
	}
	return out
}

// fallbackImage is the plain grayscale + autocontrast rendition used when no
// variant produced any text
func fallbackImage(src image.Image) image.Image {
	return preprocess.AutoContrast(preprocess.Grayscale(src))
}
