package inference

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	users  int
	initMu sync.Mutex
)

// Initialize sets up the ONNX Runtime environment. Every successful call must
// be paired with Shutdown; the environment lives until the last user leaves.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if users > 0 {
		users++
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	users = 1
	return nil
}

// Shutdown releases one Initialize and cleans up the environment after the
// last one
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if users == 0 {
		return nil
	}
	users--
	if users > 0 {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}
	return nil
}

// SessionConfig describes one model and the fixed shapes of its outputs
type SessionConfig struct {
	ModelPath    string
	InputNames   []string
	OutputNames  []string
	OutputShapes [][]int64
	UseCoreML    bool
}

// Session wraps an ONNX Runtime inference session
type Session struct {
	session      *ort.DynamicAdvancedSession
	modelPath    string
	outputShapes [][]int64
}

// NewSession creates a new inference session from an ONNX model
func NewSession(cfg SessionConfig) (*Session, error) {
	initMu.Lock()
	ready := users > 0
	initMu.Unlock()
	if !ready {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}
	if len(cfg.OutputNames) != len(cfg.OutputShapes) {
		return nil, fmt.Errorf("%s: %d output names but %d output shapes",
			cfg.ModelPath, len(cfg.OutputNames), len(cfg.OutputShapes))
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if cfg.UseCoreML {
		// Flag 0 = default settings, use Neural Engine + GPU
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			log.Debug().Err(err).Str("model", cfg.ModelPath).Msg("CoreML unavailable, using CPU")
		} else {
			log.Debug().Str("model", cfg.ModelPath).Msg("CoreML execution provider enabled")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		cfg.InputNames,
		cfg.OutputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", cfg.ModelPath, err)
	}
	log.Debug().Str("model", cfg.ModelPath).Strs("outputs", cfg.OutputNames).Msg("session created")

	return &Session{
		session:      session,
		modelPath:    cfg.ModelPath,
		outputShapes: cfg.OutputShapes,
	}, nil
}

// Run executes inference with the given inputs
func (s *Session) Run(inputs []ort.Value, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// Infer runs the model on a single input and copies every output out of
// the runtime-owned tensors
func (s *Session) Infer(input Tensor) ([][]float32, error) {
	inputTensor, err := CreateTensor(input.Shape, input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, len(s.outputShapes))
	tensors := make([]*ort.Tensor[float32], 0, len(s.outputShapes))
	defer func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}()
	for i, shape := range s.outputShapes {
		t, err := CreateEmptyTensor[float32](shape)
		if err != nil {
			return nil, fmt.Errorf("failed to create output tensor %d: %w", i, err)
		}
		tensors = append(tensors, t)
		outputs[i] = t
	}

	if err := s.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed for %s: %w", s.modelPath, err)
	}

	result := make([][]float32, len(tensors))
	for i, t := range tensors {
		data := t.GetData()
		result[i] = make([]float32, len(data))
		copy(result[i], data)
	}
	return result, nil
}

// Destroy releases session resources
func (s *Session) Destroy() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

// CreateTensor creates a float32 tensor with the given shape and data
func CreateTensor[T ort.TensorData](shape []int64, data []T) (*ort.Tensor[T], error) {
	return ort.NewTensor(ort.NewShape(shape...), data)
}

// CreateEmptyTensor creates an uninitialized tensor for output
func CreateEmptyTensor[T ort.TensorData](shape []int64) (*ort.Tensor[T], error) {
	data := make([]T, ShapeSize(shape))
	return ort.NewTensor(ort.NewShape(shape...), data)
}
