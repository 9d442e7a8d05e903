package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/config"
	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/inference"
	"github.com/dudu/frvtface/internal/recognizer"
)

// Graph names of the landmark and recognition models
var (
	landmarkInputNames     = []string{"d_net_input"}
	landmarkOutputNames    = []string{"lm_output/BiasAdd"}
	recognitionInputNames  = []string{"input"}
	recognitionOutputNames = []string{"output_features"}
)

// ErrNoFace is returned by Process when the detector finds nothing
var ErrNoFace = errors.New("no face detected")

// Timing holds performance timing information
type Timing struct {
	Detection   time.Duration
	Landmarks   time.Duration
	Recognition time.Duration
	Total       time.Duration
}

// FaceResult is the outcome of processing one image
type FaceResult struct {
	Face       detector.Face
	Landmarks  detector.Landmarks
	Descriptor recognizer.Descriptor
	// Reliable is false when the landmarks were rejected; Descriptor is then
	// zero
	Reliable bool
}

// Pipeline runs detection, landmarks, gating and recognition on one image at
// a time. It is not safe for concurrent use.
type Pipeline struct {
	detector   FaceDetector
	landmarks  LandmarkDetector
	extractor  FeatureExtractor
	sessions   []*inference.Session
	ownRuntime bool
	lastTiming Timing
}

// New initializes ONNX Runtime and builds the full pipeline from cfg
func New(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := inference.Initialize(cfg.OrtLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize inference: %w", err)
	}

	p := &Pipeline{ownRuntime: true}

	detSession, err := p.open(inference.SessionConfig{
		ModelPath:    cfg.ModelPath(cfg.DetectorModel),
		InputNames:   detector.SCRFDInputNames,
		OutputNames:  detector.SCRFDOutputNames,
		OutputShapes: detector.SCRFDOutputShapes(cfg.DetectionSize),
		UseCoreML:    cfg.UseCoreML,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	lmSession, err := p.open(inference.SessionConfig{
		ModelPath:    cfg.ModelPath(cfg.LandmarkModel),
		InputNames:   landmarkInputNames,
		OutputNames:  landmarkOutputNames,
		OutputShapes: [][]int64{{1, detector.DnetOutputSize}},
		UseCoreML:    cfg.UseCoreML,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create landmark detector: %w", err)
	}

	recSession, err := p.open(inference.SessionConfig{
		ModelPath:    cfg.ModelPath(cfg.RecognitionModel),
		InputNames:   recognitionInputNames,
		OutputNames:  recognitionOutputNames,
		OutputShapes: [][]int64{{1, recognizer.FeatureSize}},
		UseCoreML:    cfg.UseCoreML,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	p.detector = detector.NewSCRFD(detSession, cfg.DetectionSize, cfg.ConfThreshold, cfg.NMSThreshold)
	p.landmarks = detector.NewFlipGate(
		detector.NewDnetLandmarks(lmSession, cfg.LandmarkInputSize),
		cfg.FlipThreshold,
		cfg.SkipFlipCheck,
	)
	p.extractor = recognizer.NewSphereFace(recSession, cfg.RecognitionInputSize, cfg.MarginRatio)

	return p, nil
}

// NewWithComponents builds a pipeline from caller-owned stages. Close does
// not release them.
func NewWithComponents(det FaceDetector, landmarks LandmarkDetector, extractor FeatureExtractor) *Pipeline {
	return &Pipeline{
		detector:  det,
		landmarks: landmarks,
		extractor: extractor,
	}
}

func (p *Pipeline) open(cfg inference.SessionConfig) (*inference.Session, error) {
	s, err := inference.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	p.sessions = append(p.sessions, s)
	return s, nil
}

// Process finds the best face in img and describes it
func (p *Pipeline) Process(img gocv.Mat) (FaceResult, error) {
	var timing Timing
	totalStart := time.Now()
	defer func() {
		timing.Total = time.Since(totalStart)
		p.lastTiming = timing
	}()

	if img.Empty() {
		return FaceResult{}, fmt.Errorf("empty image")
	}

	detectStart := time.Now()
	faces, err := p.detector.Detect(img)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		return FaceResult{}, fmt.Errorf("detection failed: %w", err)
	}
	if len(faces) == 0 {
		return FaceResult{}, ErrNoFace
	}

	result := FaceResult{Face: faces[0]}

	lmStart := time.Now()
	landmarks, err := p.landmarks.Detect(img, result.Face.Rect)
	timing.Landmarks = time.Since(lmStart)
	if err != nil {
		return FaceResult{}, fmt.Errorf("landmark detection failed: %w", err)
	}
	if landmarks.Empty() {
		return result, nil
	}
	result.Landmarks = landmarks

	recStart := time.Now()
	desc, err := p.extractor.Extract(img, landmarks)
	timing.Recognition = time.Since(recStart)
	if errors.Is(err, recognizer.ErrEmptyCrop) {
		return result, nil
	}
	if err != nil {
		return FaceResult{}, fmt.Errorf("feature extraction failed: %w", err)
	}

	result.Descriptor = desc
	result.Reliable = true
	return result, nil
}

// CreateTemplate processes every image and averages the descriptors of the
// reliable ones. Images without a face or without reliable landmarks only
// leave an unassigned eye pair behind.
func (p *Pipeline) CreateTemplate(images []gocv.Mat) (Template, error) {
	tmpl := Template{EyePairs: make([]EyePair, len(images))}

	var descriptors []recognizer.Descriptor
	for i, img := range images {
		result, err := p.Process(img)
		if errors.Is(err, ErrNoFace) {
			log.Debug().Int("image", i).Msg("no face detected")
			continue
		}
		if err != nil {
			return Template{}, fmt.Errorf("image %d: %w", i, err)
		}

		t := p.lastTiming
		log.Debug().
			Int("image", i).
			Bool("reliable", result.Reliable).
			Dur("detection", t.Detection).
			Dur("landmarks", t.Landmarks).
			Dur("recognition", t.Recognition).
			Dur("total", t.Total).
			Msg("image processed")

		if !result.Reliable {
			continue
		}
		tmpl.EyePairs[i] = eyePair(result.Landmarks)
		descriptors = append(descriptors, result.Descriptor)
	}

	if len(descriptors) > 0 {
		tmpl.Descriptor = recognizer.Mean(descriptors)
		tmpl.Valid = true
	}
	return tmpl, nil
}

// LastTiming returns timing from last Process call
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error

	for _, s := range p.sessions {
		if err := s.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	p.sessions = nil

	if p.ownRuntime {
		p.ownRuntime = false
		if err := inference.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}
	return nil
}
