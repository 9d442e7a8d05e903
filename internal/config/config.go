package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds model locations, pipeline thresholds and evaluation settings
type Config struct {
	ConfigDir            string  // directory holding the model files
	DetectorModel        string  // SCRFD face detector, relative to ConfigDir
	LandmarkModel        string  // dnet landmark model, relative to ConfigDir
	RecognitionModel     string  // SphereFace recognition model, relative to ConfigDir
	OrtLibrary           string  // ONNX Runtime shared library, empty for the platform default
	UseCoreML            bool    // try the CoreML execution provider first
	DetectionSize        int     // square detector input
	ConfThreshold        float32 // minimum detector score
	NMSThreshold         float32 // IoU above which detections are suppressed
	LandmarkInputSize    int     // square landmark crop
	RecognitionInputSize int     // square recognition crop
	MarginRatio          float64 // expansion of the landmark box for recognition
	FlipThreshold        float64 // maximum flip deviation in pixels
	SkipFlipCheck        bool    // accept landmarks without the mirrored pass
	ImageRoot            string  // directory test list file names are resolved against
	FPRDividers          []int   // N in FPR = 1:N
	Workers              int
	DatabaseURL          string
	LogLevel             string
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		ConfigDir:            "config",
		DetectorModel:        "det_10g.onnx",
		LandmarkModel:        "dnet.onnx",
		RecognitionModel:     "sphereface.onnx",
		DetectionSize:        640,
		ConfThreshold:        0.5,
		NMSThreshold:         0.4,
		LandmarkInputSize:    64,
		RecognitionInputSize: 128,
		MarginRatio:          0.75,
		FlipThreshold:        10000,
		SkipFlipCheck:        true,
		ImageRoot:            ".",
		FPRDividers:          []int{10, 100, 1000},
		Workers:              1,
		LogLevel:             "info",
	}
}

// Load returns Default overlaid with FRVT_* environment variables
func Load() (Config, error) {
	cfg := Default()

	cfg.ConfigDir = envString("FRVT_CONFIG_DIR", cfg.ConfigDir)
	cfg.DetectorModel = envString("FRVT_DETECTOR_MODEL", cfg.DetectorModel)
	cfg.LandmarkModel = envString("FRVT_LANDMARK_MODEL", cfg.LandmarkModel)
	cfg.RecognitionModel = envString("FRVT_RECOGNITION_MODEL", cfg.RecognitionModel)
	cfg.OrtLibrary = envString("FRVT_ORT_LIB", cfg.OrtLibrary)
	cfg.ImageRoot = envString("FRVT_IMAGE_ROOT", cfg.ImageRoot)
	cfg.DatabaseURL = envString("FRVT_DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("FRVT_LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.UseCoreML, err = envBool("FRVT_USE_COREML", cfg.UseCoreML); err != nil {
		return Config{}, err
	}
	if cfg.SkipFlipCheck, err = envBool("FRVT_SKIP_FLIP_CHECK", cfg.SkipFlipCheck); err != nil {
		return Config{}, err
	}
	if cfg.DetectionSize, err = envInt("FRVT_DETECTION_SIZE", cfg.DetectionSize); err != nil {
		return Config{}, err
	}
	if cfg.LandmarkInputSize, err = envInt("FRVT_LANDMARK_SIZE", cfg.LandmarkInputSize); err != nil {
		return Config{}, err
	}
	if cfg.RecognitionInputSize, err = envInt("FRVT_RECOGNITION_SIZE", cfg.RecognitionInputSize); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = envInt("FRVT_WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	if cfg.MarginRatio, err = envFloat("FRVT_MARGIN_RATIO", cfg.MarginRatio); err != nil {
		return Config{}, err
	}
	if cfg.FlipThreshold, err = envFloat("FRVT_FLIP_THRESHOLD", cfg.FlipThreshold); err != nil {
		return Config{}, err
	}
	conf, err := envFloat("FRVT_CONF_THRESHOLD", float64(cfg.ConfThreshold))
	if err != nil {
		return Config{}, err
	}
	cfg.ConfThreshold = float32(conf)
	nms, err := envFloat("FRVT_NMS_THRESHOLD", float64(cfg.NMSThreshold))
	if err != nil {
		return Config{}, err
	}
	cfg.NMSThreshold = float32(nms)
	if cfg.FPRDividers, err = envInts("FRVT_FPR_DIVIDERS", cfg.FPRDividers); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects values the pipeline cannot run with
func (c Config) Validate() error {
	if c.DetectionSize <= 0 || c.LandmarkInputSize <= 0 || c.RecognitionInputSize <= 0 {
		return errors.New("input sizes must be positive")
	}
	if c.DetectionSize%32 != 0 {
		return errors.Errorf("detection size %d is not a multiple of 32", c.DetectionSize)
	}
	if c.MarginRatio < 0 {
		return errors.New("margin ratio cannot be negative")
	}
	if c.FlipThreshold < 0 {
		return errors.New("flip threshold cannot be negative")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if len(c.FPRDividers) == 0 {
		return errors.New("at least one FPR divider is required")
	}
	for _, d := range c.FPRDividers {
		if d < 1 {
			return errors.Errorf("FPR divider %d must be positive", d)
		}
	}
	return nil
}

// FlipThresholdIgnored reports whether a non-default flip threshold was set
// while the flip check is skipped, so the threshold has no effect
func (c Config) FlipThresholdIgnored() bool {
	return c.SkipFlipCheck && c.FlipThreshold != Default().FlipThreshold
}

// ModelPath resolves a model file name against ConfigDir
func (c Config) ModelPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ConfigDir, name)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to convert %s to int", key)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to convert %s to float", key)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "unable to convert %s to bool", key)
	}
	return b, nil
}

// envInts reads a comma separated list such as "10,100,1000"
func envInts(key string, fallback []int) ([]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to convert %s to a list of ints", key)
		}
		out = append(out, n)
	}
	return out, nil
}
