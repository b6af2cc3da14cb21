// Package viewer - Nuts that print or display the contents of samples.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/flow"
	"gorgonia.org/tensor"
)

// PrintColType prints type and other information for the columns of every
// item and returns the item unchanged.
//
//	item 0: <Sample>
//	  0: <tensor> shape:10x20x3 dtype:float64 range:0..0
//	  1: <int> 1
//	item 1: <int>
//	  0: <int> 3
type PrintColType struct {
	cols []int
	out  io.Writer

	mu  sync.Mutex
	cnt int
}

// NewPrintColType creates a PrintColType for the given columns (nil shows
// all) writing to out (nil writes to stdout).
func NewPrintColType(cols []int, out io.Writer) *PrintColType {
	if out == nil {
		out = os.Stdout
	}
	return &PrintColType{cols: cols, out: out}
}

// Apply implements flow.Nut.
func (p *PrintColType) Apply(_ context.Context, item interface{}) (interface{}, error) {
	var buf bytes.Buffer

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(&buf, "item %d: <%s>\n", p.cnt, typeName(item))
	p.cnt++
	for i, e := range flow.AsSample(item) {
		if !p.selected(i) {
			continue
		}
		fmt.Fprintf(&buf, "  %d: <%s> %s\n", i, typeName(e), describe(e))
	}

	if _, err := p.out.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	return item, nil
}

func (p *PrintColType) selected(col int) bool {
	if len(p.cols) == 0 {
		return true
	}
	for _, c := range p.cols {
		if c == col {
			return true
		}
	}
	return false
}

func typeName(v interface{}) string {
	switch v.(type) {
	case flow.Sample, []interface{}:
		return "Sample"
	case *tensor.Dense:
		return "tensor"
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v interface{}) string {
	t, ok := v.(*tensor.Dense)
	if !ok {
		return fmt.Sprint(v)
	}
	text := fmt.Sprintf("shape:%s dtype:%s", arrays.ShapeString(t), t.Dtype())
	lo, hi, err := arrays.Range(t)
	if err != nil {
		return text + " range:-"
	}
	return fmt.Sprintf("%s range:%v..%v", text, lo, hi)
}
