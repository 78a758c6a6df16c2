package inference

import (
	"context"
	"sync"

	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// fakeEngine returns a fixed output and records the inputs it was given.
type fakeEngine struct {
	mu     sync.Mutex
	shape  Shape
	out    postprocess.Output
	err    error
	inputs [][]float32
	closed bool
}

func newFakeEngine(classes int, out postprocess.Output) *fakeEngine {
	return &fakeEngine{
		shape: Shape{InputSize: 32, Layout: model.LayoutCHW, Classes: classes, Proposals: out.Proposals},
		out:   out,
	}
}

func (f *fakeEngine) Run(ctx context.Context, input []float32) (postprocess.Output, error) {
	if err := ctx.Err(); err != nil {
		return postprocess.Output{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return postprocess.Output{}, ErrClosed
	}
	if f.err != nil {
		return postprocess.Output{}, f.err
	}
	f.inputs = append(f.inputs, input)

	data := append([]float32(nil), f.out.Data...)
	return postprocess.NewOutput(data, f.out.Classes, f.out.Proposals)
}

func (f *fakeEngine) Shape() Shape {
	return f.shape
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeEngine) runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}
