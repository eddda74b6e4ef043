package recognition

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/your-org/attend/internal/config"
)

func testQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		MinSize:       16,
		MaxSize:       64,
		MinBrightness: 50,
		MaxBrightness: 200,
		MinBlurScore:  100,
		MinFaceRatio:  0.1,
	}
}

func uniformImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// stripeImage alternates black and white in vertical bands two pixels wide,
// giving strong gradients and a mid-range mean brightness.
func stripeImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x/2)%2 == 1 {
				v = 255
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestCheckImageGates(t *testing.T) {
	cfg := testQualityConfig()

	tests := []struct {
		name   string
		img    image.Image
		ok     bool
		reason string
	}{
		{"sharp stripes pass", stripeImage(32, 32), true, ""},
		{"too small", stripeImage(8, 8), false, "image too small"},
		{"too large", stripeImage(128, 128), false, "image too large"},
		{"too dark", uniformImage(32, 32, 10), false, "image too dark"},
		{"too bright", uniformImage(32, 32, 250), false, "image too bright"},
		{"flat image is blurry", uniformImage(32, 32, 128), false, "image too blurry"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep := CheckImage(tc.img, cfg)
			if rep.OK != tc.ok {
				t.Fatalf("OK = %v (reason %q); want %v", rep.OK, rep.Reason, tc.ok)
			}
			if rep.Reason != tc.reason {
				t.Errorf("reason = %q; want %q", rep.Reason, tc.reason)
			}
		})
	}
}

func TestCheckImageQualityScore(t *testing.T) {
	rep := CheckImage(stripeImage(32, 32), testQualityConfig())
	if !rep.OK {
		t.Fatalf("stripes should pass, got %q", rep.Reason)
	}
	if rep.Score <= 0 || rep.Score > 100 {
		t.Errorf("score = %f; want within (0, 100]", rep.Score)
	}
}

func TestFaceRatio(t *testing.T) {
	tests := []struct {
		name     string
		bbox     [4]float32
		w, h     int
		expected float64
	}{
		{"half width half height", [4]float32{0, 0, 50, 50}, 100, 100, 0.25},
		{"full frame", [4]float32{0, 0, 100, 100}, 100, 100, 1.0},
		{"degenerate box", [4]float32{10, 10, 10, 40}, 100, 100, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FaceRatio(tc.bbox, tc.w, tc.h)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("FaceRatio = %f; want %f", got, tc.expected)
			}
		})
	}
}

func TestScoreLivenessFlat(t *testing.T) {
	rep := ScoreLiveness(uniformImage(32, 32, 128))
	if rep.Live {
		t.Error("flat gray image should not score as live")
	}
	if rep.Score != 0 {
		t.Errorf("score = %f; want 0", rep.Score)
	}
}

func TestScoreLivenessTexturedImage(t *testing.T) {
	rep := ScoreLiveness(stripeImage(32, 32))
	if !rep.Live {
		t.Errorf("high-contrast stripes should score live, got %+v", rep)
	}
	// Grayscale stripes carry texture and edges but no color spread.
	if rep.Score != 70 {
		t.Errorf("score = %f; want 70", rep.Score)
	}
}
