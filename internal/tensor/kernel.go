package tensor

import "fmt"

// FlipKernel reverses the last two axes of a tensor of rank 1-4 (the only axis for rank 1).
// Correlating with a flipped kernel is a true convolution.
func FlipKernel(a *Tensor) (*Tensor, error) {
	rank := a.Rank()
	if rank < 1 || rank > 4 {
		return nil, &DimensionError{Op: "flip kernel", A: a.shape, Reason: "rank must be between 1 and 4"}
	}
	out := New(a.shape...)
	if rank == 1 {
		n := a.shape[0]
		for i := 0; i < n; i++ {
			out.data[i] = a.data[n-1-i]
		}
		return out, nil
	}
	h, w := a.shape[rank-2], a.shape[rank-1]
	plane := h * w
	for base := 0; base < len(a.data); base += plane {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.data[base+y*w+x] = a.data[base+(h-1-y)*w+(w-1-x)]
			}
		}
	}
	return out, nil
}

// ConvOutputSize returns floor((in - filter + 2*padding)/stride) + 1, or 0 when the
// filter does not fit the padded input.
func ConvOutputSize(in, filter, stride, padding int) int {
	if stride < 1 || in+2*padding < filter {
		return 0
	}
	return (in-filter+2*padding)/stride + 1
}

type correlationGeometry struct {
	d, h, w         int // input
	k, fh, fw       int // filters
	outH, outW      int
	stride, padding int
}

func checkCorrelation(op string, input, filters *Tensor, stride, padding int) (correlationGeometry, error) {
	var g correlationGeometry
	if input.Rank() != 3 || filters.Rank() != 4 {
		return g, &DimensionError{Op: op, A: input.shape, B: filters.shape, Reason: "want a 3D input and 4D filters"}
	}
	if filters.shape[1] != input.shape[0] {
		return g, &DimensionError{
			Op: op, A: input.shape, B: filters.shape,
			Reason: fmt.Sprintf("filter depth %d does not match input depth %d", filters.shape[1], input.shape[0]),
		}
	}
	if stride < 1 || padding < 0 {
		return g, &DimensionError{
			Op: op, A: input.shape, B: filters.shape,
			Reason: fmt.Sprintf("invalid stride %d or padding %d", stride, padding),
		}
	}
	g = correlationGeometry{
		d: input.shape[0], h: input.shape[1], w: input.shape[2],
		k: filters.shape[0], fh: filters.shape[2], fw: filters.shape[3],
		stride: stride, padding: padding,
	}
	g.outH = ConvOutputSize(g.h, g.fh, stride, padding)
	g.outW = ConvOutputSize(g.w, g.fw, stride, padding)
	if g.outH < 1 || g.outW < 1 {
		return g, &DimensionError{Op: op, A: input.shape, B: filters.shape, Reason: "filter larger than padded input"}
	}
	return g, nil
}

// Correlate slides every filter over the zero-padded input and returns a K x H' x W' tensor.
// bias may be nil; otherwise it holds one value per filter.
func Correlate(input, filters *Tensor, stride, padding int, bias *Tensor) (*Tensor, error) {
	return CorrelateWith(Sequential, input, filters, stride, padding, bias)
}

// CorrelateWith is Correlate executed by r, one call per output element.
func CorrelateWith(r Runner, input, filters *Tensor, stride, padding int, bias *Tensor) (*Tensor, error) {
	g, err := checkCorrelation("correlate", input, filters, stride, padding)
	if err != nil {
		return nil, err
	}
	if bias != nil && (bias.Rank() != 1 || bias.shape[0] != g.k) {
		return nil, &DimensionError{Op: "correlate", A: filters.shape, B: bias.shape, Reason: "want one bias per filter"}
	}

	out := New(g.k, g.outH, g.outW)
	in, f := input.data, filters.data
	outPlane := g.outH * g.outW
	inPlane := g.h * g.w
	fPlane := g.fh * g.fw

	r.For(len(out.data), func(idx int) {
		k := idx / outPlane
		oy := (idx % outPlane) / g.outW
		ox := idx % g.outW

		sum := 0.0
		if bias != nil {
			sum = bias.data[k]
		}
		for z := 0; z < g.d; z++ {
			fBase := (k*g.d + z) * fPlane
			inBase := z * inPlane
			for ky := 0; ky < g.fh; ky++ {
				iy := oy*g.stride + ky - g.padding
				if iy < 0 || iy >= g.h {
					continue
				}
				for kx := 0; kx < g.fw; kx++ {
					ix := ox*g.stride + kx - g.padding
					if ix < 0 || ix >= g.w {
						continue
					}
					sum += in[inBase+iy*g.w+ix] * f[fBase+ky*g.fw+kx]
				}
			}
		}
		out.data[idx] = sum
	})
	return out, nil
}

// Convolute is Correlate with every filter flipped along its spatial axes.
func Convolute(input, filters *Tensor, stride, padding int, bias *Tensor) (*Tensor, error) {
	flipped, err := FlipKernel(filters)
	if err != nil {
		return nil, err
	}
	return Correlate(input, flipped, stride, padding, bias)
}

// CorrelationGrads holds the gradients of a correlation with respect to each argument.
type CorrelationGrads struct {
	DFilters *Tensor // K x D x F x F
	DInput   *Tensor // D x H x W
	DBias    *Tensor // K
}

// BackPropagateCorrelation returns the adjoint of Correlate with respect to the filters,
// the input and the bias, given the output gradient dOut (K x H' x W').
func BackPropagateCorrelation(filters, dOut, input *Tensor, stride, padding int) (*CorrelationGrads, error) {
	return BackPropagateCorrelationWith(Sequential, filters, dOut, input, stride, padding)
}

// BackPropagateCorrelationWith is BackPropagateCorrelation executed by r.
// Each gradient element is gathered independently, so no two calls write the same slot.
func BackPropagateCorrelationWith(r Runner, filters, dOut, input *Tensor, stride, padding int) (*CorrelationGrads, error) {
	g, err := checkCorrelation("back propagate correlation", input, filters, stride, padding)
	if err != nil {
		return nil, err
	}
	want := Shape{g.k, g.outH, g.outW}
	if !dOut.shape.Equal(want) {
		return nil, &DimensionError{
			Op: "back propagate correlation", A: dOut.shape, B: want,
			Reason: "output gradient does not match correlation output",
		}
	}

	in, f, dy := input.data, filters.data, dOut.data
	outPlane := g.outH * g.outW
	inPlane := g.h * g.w
	fPlane := g.fh * g.fw

	dFilters := New(filters.shape...)
	r.For(len(dFilters.data), func(idx int) {
		k := idx / (g.d * fPlane)
		z := (idx / fPlane) % g.d
		ky := (idx % fPlane) / g.fw
		kx := idx % g.fw

		sum := 0.0
		for oy := 0; oy < g.outH; oy++ {
			iy := oy*g.stride + ky - g.padding
			if iy < 0 || iy >= g.h {
				continue
			}
			for ox := 0; ox < g.outW; ox++ {
				ix := ox*g.stride + kx - g.padding
				if ix < 0 || ix >= g.w {
					continue
				}
				sum += dy[k*outPlane+oy*g.outW+ox] * in[z*inPlane+iy*g.w+ix]
			}
		}
		dFilters.data[idx] = sum
	})

	dInput := New(input.shape...)
	r.For(len(dInput.data), func(idx int) {
		z := idx / inPlane
		y := (idx % inPlane) / g.w
		x := idx % g.w

		sum := 0.0
		for k := 0; k < g.k; k++ {
			fBase := (k*g.d + z) * fPlane
			for ky := 0; ky < g.fh; ky++ {
				ty := y + g.padding - ky
				if ty < 0 || ty%g.stride != 0 || ty/g.stride >= g.outH {
					continue
				}
				oy := ty / g.stride
				for kx := 0; kx < g.fw; kx++ {
					tx := x + g.padding - kx
					if tx < 0 || tx%g.stride != 0 || tx/g.stride >= g.outW {
						continue
					}
					ox := tx / g.stride
					sum += dy[k*outPlane+oy*g.outW+ox] * f[fBase+ky*g.fw+kx]
				}
			}
		}
		dInput.data[idx] = sum
	})

	dBias := New(g.k)
	r.For(g.k, func(k int) {
		sum := 0.0
		for _, v := range dy[k*outPlane : (k+1)*outPlane] {
			sum += v
		}
		dBias.data[k] = sum
	})

	return &CorrelationGrads{DFilters: dFilters, DInput: dInput, DBias: dBias}, nil
}
