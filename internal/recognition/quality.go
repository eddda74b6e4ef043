package recognition

import (
	"image"

	"github.com/your-org/attend/internal/config"
)

// QualityReport is the result of the hard image gates applied before an
// image is allowed anywhere near the encoder.
type QualityReport struct {
	OK         bool
	Reason     string
	Width      int
	Height     int
	Brightness float64
	BlurScore  float64
	Score      float32
}

// CheckImage validates size, brightness and sharpness of a face image.
// Face-count and face-ratio gates happen after detection; see FaceRatio.
func CheckImage(img image.Image, cfg config.QualityConfig) QualityReport {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	rep := QualityReport{Width: w, Height: h}

	if w < cfg.MinSize || h < cfg.MinSize {
		rep.Reason = "image too small"
		return rep
	}
	if w > cfg.MaxSize || h > cfg.MaxSize {
		rep.Reason = "image too large"
		return rep
	}

	gray := grayscale(img)
	rep.Brightness = mean(gray)

	if rep.Brightness < cfg.MinBrightness {
		rep.Reason = "image too dark"
		return rep
	}
	if rep.Brightness > cfg.MaxBrightness {
		rep.Reason = "image too bright"
		return rep
	}

	rep.BlurScore = laplacianVariance(gray, w, h)
	if rep.BlurScore < cfg.MinBlurScore {
		rep.Reason = "image too blurry"
		return rep
	}

	score := rep.BlurScore / 500 * 100
	if score > 100 {
		score = 100
	}
	rep.Score = float32(score)
	rep.OK = true
	return rep
}

// FaceRatio is the detected face area relative to the whole image.
func FaceRatio(bbox [4]float32, imgW, imgH int) float64 {
	fw := float64(bbox[2] - bbox[0])
	fh := float64(bbox[3] - bbox[1])
	if fw <= 0 || fh <= 0 || imgW <= 0 || imgH <= 0 {
		return 0
	}
	return (fw * fh) / (float64(imgW) * float64(imgH))
}

// grayscale flattens an image to 8-bit luminance, row-major.
func grayscale(img image.Image) []float64 {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r >> 8)
			gf := float64(g >> 8)
			bf := float64(b >> 8)
			gray[y*w+x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return gray
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func variance(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m := mean(v)
	var sum float64
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(v))
}

// laplacianVariance measures sharpness as the variance of the 4-neighbour
// Laplacian. Low values mean a blurry capture.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	lap := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := gray[y*w+x]
			v := gray[(y-1)*w+x] + gray[(y+1)*w+x] + gray[y*w+x-1] + gray[y*w+x+1] - 4*c
			lap = append(lap, v)
		}
	}
	return variance(lap)
}
