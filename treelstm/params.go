package treelstm

import (
	"fmt"

	"github.com/chewxy/math32"
	rng "github.com/leesper/go_rng"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

// Parameter is a learnable value that outlives every sentence graph. It is
// bound into each new graph as an input node and collects gradients from it.
//
// Parameter implements G.ValueGrad, so it can be handed to any gorgonia solver.
type Parameter struct {
	name  string
	value *tensor.Dense
	grad  *tensor.Dense
}

func newParameter(name string, shape ...int) *Parameter {
	return &Parameter{
		name:  name,
		value: tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float32)),
		grad:  tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float32)),
	}
}

func (p *Parameter) Name() string               { return p.name }
func (p *Parameter) Shape() tensor.Shape        { return p.value.Shape() }
func (p *Parameter) Value() G.Value             { return p.value }
func (p *Parameter) Grad() (G.Value, error)     { return p.grad, nil }
func (p *Parameter) Data() []float32            { return p.value.Data().([]float32) }
func (p *Parameter) gradData() []float32        { return p.grad.Data().([]float32) }
func (p *Parameter) String() string             { return fmt.Sprintf("%s%v", p.name, p.Shape()) }
func (p *Parameter) zeroGrad()                  { p.grad.Zero() }
func (p *Parameter) set(vals []float32) (n int) { return copy(p.Data(), vals) }

// glorot fills the parameter uniformly in ±sqrt(6/sum(dims)).
func (p *Parameter) glorot(r *rng.UniformGenerator) {
	var sum int
	for _, d := range p.Shape() {
		sum += d
	}
	scale := math32.Sqrt(6 / float32(sum))
	data := p.Data()
	for i := range data {
		data[i] = r.Float32Range(-scale, scale)
	}
}

// node binds the parameter into g. The node shares the parameter's backing
// tensor.
func (p *Parameter) node(g *G.ExprGraph) *G.Node {
	if p.value.Dims() == 1 {
		return G.NewVector(g, Float, G.WithShape(p.Shape()...), G.WithName(p.name), G.WithValue(p.value))
	}
	return G.NewMatrix(g, Float, G.WithShape(p.Shape()...), G.WithName(p.name), G.WithValue(p.value))
}

// affineParams is a weight matrix and its bias.
type affineParams struct {
	W, B *Parameter
}

// ruleParams are the tree cell weights of one rule type.
type ruleParams struct {
	input       affineParams
	leftForget  affineParams
	rightForget affineParams
	cell        affineParams
	output      affineParams
}

// lstmLayer holds the weights of one layer of a peephole LSTM.
type lstmLayer struct {
	x2i, h2i, c2i, bi *Parameter
	x2o, h2o, c2o, bo *Parameter
	x2c, h2c, bc      *Parameter
}

// lstm is a stack of layers. The forget gate is the complement of the input
// gate.
type lstm struct {
	name       string
	inputDims  int
	hiddenDims int
	layers     []lstmLayer
}

// builder creates parameters in checkpoint order.
type builder struct {
	params []*Parameter
	r      *rng.UniformGenerator
}

func (b *builder) add(name string, shape ...int) *Parameter {
	p := newParameter(name, shape...)
	p.glorot(b.r)
	b.params = append(b.params, p)
	return p
}

func (b *builder) affine(name string, out, in int) affineParams {
	return affineParams{
		W: b.add(name+"_w", out, in),
		B: b.add(name+"_b", out),
	}
}

func (b *builder) lstm(name string, layers, inputDims, hiddenDims int) *lstm {
	retVal := &lstm{name: name, inputDims: inputDims, hiddenDims: hiddenDims}
	in := inputDims
	for i := 0; i < layers; i++ {
		prefix := fmt.Sprintf("%s/%d/", name, i)
		l := lstmLayer{
			x2i: b.add(prefix+"x2i", hiddenDims, in),
			h2i: b.add(prefix+"h2i", hiddenDims, hiddenDims),
			c2i: b.add(prefix+"c2i", hiddenDims, hiddenDims),
			bi:  b.add(prefix+"bi", hiddenDims),
			x2o: b.add(prefix+"x2o", hiddenDims, in),
			h2o: b.add(prefix+"h2o", hiddenDims, hiddenDims),
			c2o: b.add(prefix+"c2o", hiddenDims, hiddenDims),
			bo:  b.add(prefix+"bo", hiddenDims),
			x2c: b.add(prefix+"x2c", hiddenDims, in),
			h2c: b.add(prefix+"h2c", hiddenDims, hiddenDims),
			bc:  b.add(prefix+"bc", hiddenDims),
		}
		retVal.layers = append(retVal.layers, l)
		in = hiddenDims
	}
	return retVal
}

func (b *builder) table(name string, rows, width int) []*Parameter {
	retVal := make([]*Parameter, rows)
	for i := range retVal {
		retVal[i] = b.add(fmt.Sprintf("%s/%d", name, i), width)
	}
	return retVal
}
