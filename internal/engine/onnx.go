//go:build onnx

package engine

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"agentcore/internal/source"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// initRuntime initializes the ONNX Runtime environment once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitErr = fmt.Errorf("initialize onnx runtime: %w", err)
		}
	})
	return ortInitErr
}

type onnxBackend struct {
	opts Options
}

// NewONNXBackend returns a backend that builds ONNX Runtime sessions from
// artifact bytes. Models take a uint8 tensor of shape [1, InputSize] and
// produce a uint8 tensor of shape [1, OutputSize].
func NewONNXBackend(opts Options) Backend {
	return &onnxBackend{opts: opts.withDefaults()}
}

func (b *onnxBackend) Name() string { return "onnx" }

func (b *onnxBackend) Load(art *source.Artifact) (Engine, error) {
	if art == nil || len(art.Data) == 0 {
		return nil, errors.New("empty model artifact")
	}
	if err := initRuntime(b.opts.SharedLibraryPath); err != nil {
		return nil, err
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	if b.opts.Threads > 0 {
		_ = options.SetIntraOpNumThreads(b.opts.Threads)
	}
	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		art.Data,
		[]string{b.opts.InputName},
		[]string{b.opts.OutputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &onnxEngine{session: session, inSize: b.opts.InputSize, outSize: b.opts.OutputSize}, nil
}

type onnxEngine struct {
	session *ort.DynamicAdvancedSession
	inSize  int
	outSize int
}

func (e *onnxEngine) InputSize() int  { return e.inSize }
func (e *onnxEngine) OutputSize() int { return e.outSize }

func (e *onnxEngine) Run(input, output []byte) (int, error) {
	if e.session == nil {
		return 0, errors.New("onnx session closed")
	}
	// The input tensor has a fixed shape; pad short inputs with zeros.
	buf := make([]uint8, e.inSize)
	copy(buf, input)
	in, err := ort.NewTensor(ort.NewShape(1, int64(e.inSize)), buf)
	if err != nil {
		return 0, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()
	out, err := ort.NewEmptyTensor[uint8](ort.NewShape(1, int64(e.outSize)))
	if err != nil {
		return 0, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}); err != nil {
		return 0, fmt.Errorf("onnx inference: %w", err)
	}
	return copy(output, out.GetData()), nil
}

func (e *onnxEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
