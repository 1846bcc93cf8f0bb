// Package predict implements the inference runner: it owns the model
// session lifecycle and marshals caller-supplied feature vectors through
// ONNX Runtime.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/go-tab-predict/internal/config"
	"github.com/example/go-tab-predict/internal/onnx"
)

// Config holds everything needed to open a model for inference.
type Config struct {
	ModelName string // display name, defaults to "model"
	ModelPath string
	Runtime   config.RuntimeConfig
}

// Request is one inference call: a flat value buffer plus its shape, bound
// to a named model input. InputName may be empty when the model declares a
// single input.
type Request struct {
	InputName string
	Values    []float32
	// Shape may be empty; it is then derived from the declared input
	// signature, solving a single symbolic dimension from the value count.
	Shape []int64
}

// Output is one named model output. Tensor is nil for outputs the model
// declares as non-tensor values (sequence/map outputs of sklearn
// classifiers).
type Output struct {
	Name   string
	Tensor *onnx.Tensor
}

// Result holds all model outputs in declaration order.
type Result struct {
	Outputs []Output
}

// Scalar returns the first element of the first tensor output. This is the
// conventional "prediction" of a tabular classifier (its label output comes
// first).
func (r Result) Scalar() (float64, error) {
	for _, out := range r.Outputs {
		if out.Tensor == nil {
			continue
		}
		return out.Tensor.FirstScalar()
	}
	return 0, errors.New("result has no tensor output")
}

// Output returns the tensor for a named output.
func (r Result) Output(name string) (*onnx.Tensor, bool) {
	for _, out := range r.Outputs {
		if out.Name == name {
			return out.Tensor, true
		}
	}
	return nil, false
}

// InferenceError is the single error kind for anything that fails between
// opening the session and reading outputs, including request validation
// against the model signature.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failure (%s): %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// IsInferenceError reports whether err is (or wraps) an InferenceError.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}

func inferenceErr(stage string, err error) error {
	return &InferenceError{Stage: stage, Err: err}
}

// Predictor binds a loaded model session to the Predict operation.
// Predict is safe for concurrent use: the predictor holds no mutable state
// and ORT sessions support concurrent Run calls. Close must not race with
// in-flight Predict calls.
type Predictor struct {
	runner *onnx.Runner
	log    *slog.Logger
}

// New bootstraps the runtime, opens the model session and reads its
// declared signature. The caller must Close the predictor.
func New(cfg Config) (*Predictor, error) {
	if cfg.ModelPath == "" {
		return nil, inferenceErr("session", errors.New("model path is required"))
	}

	name := cfg.ModelName
	if name == "" {
		name = "model"
	}

	info, err := onnx.Bootstrap(cfg.Runtime)
	if err != nil {
		return nil, inferenceErr("bootstrap", err)
	}

	runner, err := onnx.NewRunner(name, cfg.ModelPath, onnx.RunnerConfig{
		LibraryPath:    info.LibraryPath,
		APIVersion:     cfg.Runtime.ORTAPIVersion,
		IntraOpThreads: cfg.Runtime.Threads,
	})
	if err != nil {
		return nil, inferenceErr("session", err)
	}

	p := &Predictor{
		runner: runner,
		log:    slog.Default(),
	}

	sig := runner.Signature()
	p.log.Info(
		"loaded model",
		"name", name,
		"path", cfg.ModelPath,
		"inputs", onnx.JoinNames(sig.Inputs),
		"outputs", onnx.JoinNames(sig.Outputs),
	)

	return p, nil
}

// Signature returns the model's declared input/output contract.
func (p *Predictor) Signature() onnx.Signature {
	return p.runner.Signature()
}

// Predict runs one synchronous inference pass. All failures, including
// request validation against the declared signature, surface as
// InferenceError.
func (p *Predictor) Predict(ctx context.Context, req Request) (Result, error) {
	node, err := resolveInput(p.runner.Signature(), req.InputName)
	if err != nil {
		return Result{}, inferenceErr("validate", err)
	}

	if len(req.Shape) == 0 {
		req.Shape, err = deriveShape(node, len(req.Values))
		if err != nil {
			return Result{}, inferenceErr("validate", err)
		}
	}

	if err := validateRequest(req, node); err != nil {
		return Result{}, inferenceErr("validate", err)
	}

	input, err := onnx.NewTensor(req.Values, req.Shape)
	if err != nil {
		return Result{}, inferenceErr("tensor", err)
	}

	outputs, err := p.runner.Run(ctx, map[string]*onnx.Tensor{node.Name: input})
	if err != nil {
		return Result{}, inferenceErr("run", err)
	}

	sig := p.runner.Signature()
	result := Result{Outputs: make([]Output, 0, len(sig.Outputs))}
	for _, out := range sig.Outputs {
		result.Outputs = append(result.Outputs, Output{
			Name:   out.Name,
			Tensor: outputs[out.Name],
		})
	}

	p.log.Debug(
		"inference complete",
		"input", node.Name,
		"values", len(req.Values),
		"outputs", len(result.Outputs),
	)

	return result, nil
}

// Close releases the underlying session. Safe to call multiple times.
func (p *Predictor) Close() {
	if p.runner != nil {
		p.runner.Close()
	}
}

func resolveInput(sig onnx.Signature, name string) (onnx.NodeInfo, error) {
	if name == "" {
		if len(sig.Inputs) != 1 {
			return onnx.NodeInfo{}, fmt.Errorf(
				"model declares %d inputs; input name is required", len(sig.Inputs))
		}
		return sig.Inputs[0], nil
	}

	node, ok := sig.Input(name)
	if !ok {
		return onnx.NodeInfo{}, fmt.Errorf(
			"model has no input %q (declared: %s)", name, onnx.JoinNames(sig.Inputs))
	}
	return node, nil
}

// deriveShape fills in a request shape from the declared input. Inputs with
// no declared shape (the common case for live sessions, which only expose
// names) get a single-row batch [1, n]. At most one symbolic dimension can
// be solved from the value count; models with several need an explicit
// shape.
func deriveShape(node onnx.NodeInfo, nValues int) ([]int64, error) {
	if nValues == 0 {
		return nil, errors.New("request has no values")
	}
	if len(node.Shape) == 0 {
		return []int64{1, int64(nValues)}, nil
	}

	shape := make([]int64, len(node.Shape))
	fixed := int64(1)
	symIdx := -1
	for i, d := range node.Shape {
		if d < 1 {
			if symIdx >= 0 {
				return nil, fmt.Errorf(
					"input %q has multiple symbolic dims in %v, explicit shape required", node.Name, node.Shape)
			}
			symIdx = i
			continue
		}
		shape[i] = d
		fixed *= d
	}

	if symIdx < 0 {
		return shape, nil
	}
	if int64(nValues)%fixed != 0 {
		return nil, fmt.Errorf(
			"cannot fit %d values into shape %v for input %q", nValues, node.Shape, node.Name)
	}
	shape[symIdx] = int64(nValues) / fixed
	return shape, nil
}

func validateRequest(req Request, node onnx.NodeInfo) error {
	if len(req.Values) == 0 {
		return errors.New("request has no values")
	}

	count, err := onnx.ElementCount(req.Shape)
	if err != nil {
		return fmt.Errorf("request shape: %w", err)
	}
	if count != len(req.Values) {
		return fmt.Errorf("shape %v expects %d values, got %d", req.Shape, count, len(req.Values))
	}

	if node.DType != "" && node.DType != onnx.DTypeFloat32 {
		return fmt.Errorf("input %q expects %s values, request carries float32", node.Name, node.DType)
	}

	if len(node.Shape) > 0 {
		if len(req.Shape) != len(node.Shape) {
			return fmt.Errorf("input %q expects rank %d, request shape %v has rank %d",
				node.Name, len(node.Shape), req.Shape, len(req.Shape))
		}
		for i, declared := range node.Shape {
			// Symbolic dims (< 1) accept any size.
			if declared >= 1 && req.Shape[i] != declared {
				return fmt.Errorf("input %q dim %d must be %d, request shape %v has %d",
					node.Name, i, declared, req.Shape, req.Shape[i])
			}
		}
	}

	return nil
}
