package recognition

import (
	"image"
	"math"
)

// LivenessReport scores how likely a capture is a live face rather than a
// photo of a photo. The thresholds are untuned heuristics carried over from
// the kiosk deployment; treat the score as a filter, not a guarantee.
type LivenessReport struct {
	Live            bool
	Score           float64
	TextureVariance float64
	ColorSpread     float64
	EdgeDensity     float64
}

// ScoreLiveness combines texture variance, saturation spread and edge
// density into a 0-100 score. Flat, washed-out, low-detail captures
// (typical of screens and prints) score low.
func ScoreLiveness(img image.Image) LivenessReport {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	gray := grayscale(img)

	rep := LivenessReport{
		TextureVariance: laplacianVariance(gray, w, h),
		ColorSpread:     saturationStdDev(img),
		EdgeDensity:     edgeDensity(gray, w, h),
	}

	if rep.TextureVariance > 100 {
		rep.Score += 30
	}
	if rep.ColorSpread > 20 {
		rep.Score += 30
	}
	if rep.EdgeDensity > 0.1 {
		rep.Score += 40
	}
	rep.Live = rep.Score > 60
	return rep
}

// saturationStdDev is the standard deviation of HSV saturation, 0-255 scale.
func saturationStdDev(img image.Image) float64 {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	sat := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r >> 8)
			gf := float64(g >> 8)
			bf := float64(b >> 8)

			max := math.Max(rf, math.Max(gf, bf))
			min := math.Min(rf, math.Min(gf, bf))
			if max == 0 {
				sat = append(sat, 0)
				continue
			}
			sat = append(sat, (max-min)/max*255)
		}
	}
	return math.Sqrt(variance(sat))
}

// edgeDensity is the fraction of pixels whose gradient magnitude crosses a
// fixed threshold.
func edgeDensity(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	edges := 0
	total := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := gray[y*w+x+1] - gray[y*w+x-1]
			gy := gray[(y+1)*w+x] - gray[(y-1)*w+x]
			if math.Abs(gx)+math.Abs(gy) > 128 {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edges) / float64(total)
}
