package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/your-org/attend/internal/config"
)

// Sentinel encoding failures. Callers surface these verbatim; they are
// never folded into a "no match" outcome.
var (
	ErrNoFace        = errors.New("no face detected in image")
	ErrMultipleFaces = errors.New("multiple faces detected in image")
)

// Result is one successful encoding of a face image.
type Result struct {
	Encoding  []float32
	DetScore  float32
	FaceRatio float64 // face area relative to the whole image
}

// Encoder is the detect-then-embed front end. It owns the ONNX sessions and
// is safe to share once constructed; sessions themselves are run serially
// by the caller (one per worker goroutine in practice).
type Encoder struct {
	detector *Detector
	embedder *Embedder
}

func NewEncoder(cfg config.RecognitionConfig) (*Encoder, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "face_rec.onnx")

	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	emb, err := NewEmbedder(embPath, cfg.EncodingDim)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Encoder{detector: det, embedder: emb}, nil
}

// EncodeEnrollment encodes an enrollment image. Enrollment requires exactly
// one face; anything else is an encoding failure, not a bad sample.
func (e *Encoder) EncodeEnrollment(imageData []byte) (*Result, error) {
	img, detections, err := e.detect(imageData)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNoFace
	}
	if len(detections) > 1 {
		return nil, ErrMultipleFaces
	}
	return e.encode(img, detections[0])
}

// EncodeCapture encodes a kiosk capture. Several bystander faces may appear
// behind the subject; the highest-confidence detection is used.
func (e *Encoder) EncodeCapture(imageData []byte) (*Result, error) {
	img, detections, err := e.detect(imageData)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNoFace
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Score > best.Score {
			best = d
		}
	}
	return e.encode(img, best)
}

func (e *Encoder) Dim() int {
	return e.embedder.Dim()
}

func (e *Encoder) Close() {
	if e.detector != nil {
		e.detector.Close()
	}
	if e.embedder != nil {
		e.embedder.Close()
	}
}

func (e *Encoder) detect(imageData []byte) (image.Image, []Detection, error) {
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	detInput := toCHW(img, e.detector.inputW, e.detector.inputH,
		[3]float32{127.5, 127.5, 127.5}, [3]float32{128.0, 128.0, 128.0})

	detections, err := e.detector.Detect(detInput, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, nil, fmt.Errorf("detect: %w", err)
	}
	return img, detections, nil
}

func (e *Encoder) encode(img image.Image, det Detection) (*Result, error) {
	crop := cropFace(img, det.BBox)
	if crop == nil {
		return nil, ErrNoFace
	}

	embInput := toCHW(crop, e.embedder.inputW, e.embedder.inputH,
		[3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5})

	encoding, err := e.embedder.Extract(embInput)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	bounds := img.Bounds()
	fw := float64(det.BBox[2] - det.BBox[0])
	fh := float64(det.BBox[3] - det.BBox[1])

	return &Result{
		Encoding:  encoding,
		DetScore:  det.Score,
		FaceRatio: (fw * fh) / float64(bounds.Dx()*bounds.Dy()),
	}, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	img, _, err = image.Decode(bytes.NewReader(data))
	return img, err
}
