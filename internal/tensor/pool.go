package tensor

import "fmt"

// Coord is a spatial (x, y) position inside one channel of a 3D tensor.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CoordMap holds, for every element of a pooled D x H' x W' output, the input
// coordinate its value was taken from.
type CoordMap struct {
	shape  Shape
	coords []Coord
}

// Shape returns the pooled output shape the map corresponds to.
func (m *CoordMap) Shape() Shape {
	return m.shape.Clone()
}

// Len returns the number of coordinates.
func (m *CoordMap) Len() int {
	return len(m.coords)
}

// At returns the source coordinate of output element (z, y, x).
func (m *CoordMap) At(z, y, x int) Coord {
	return m.coords[(z*m.shape[1]+y)*m.shape[2]+x]
}

// PoolOutputSize returns floor((in - filter)/stride) + 1, or 0 when the window does not fit.
func PoolOutputSize(in, filter, stride int) int {
	if stride < 1 || filter < 1 || in < filter {
		return 0
	}
	return (in-filter)/stride + 1
}

// MaxPool downsamples every channel of a D x H x W tensor by taking window maxima.
func MaxPool(input *Tensor, filterSize, stride int) (*Tensor, error) {
	out, _, err := MaxPoolWith(Sequential, input, filterSize, stride)
	return out, err
}

// MaxPoolCoords is MaxPool in coordinate mode: it returns where each maximum came from.
func MaxPoolCoords(input *Tensor, filterSize, stride int) (*CoordMap, error) {
	_, coords, err := MaxPoolWith(Sequential, input, filterSize, stride)
	return coords, err
}

// MaxPoolWith computes pooled values and their source coordinates, executed by r.
//
// Windows are scanned row by row, left to right; on equal maxima the first scanned
// element wins.
func MaxPoolWith(r Runner, input *Tensor, filterSize, stride int) (*Tensor, *CoordMap, error) {
	if input.Rank() != 3 {
		return nil, nil, &DimensionError{Op: "max pool", A: input.shape, Reason: "want a 3D input"}
	}
	d, h, w := input.shape[0], input.shape[1], input.shape[2]
	outH := PoolOutputSize(h, filterSize, stride)
	outW := PoolOutputSize(w, filterSize, stride)
	if outH < 1 || outW < 1 {
		return nil, nil, &DimensionError{
			Op: "max pool", A: input.shape,
			Reason: fmt.Sprintf("window %d with stride %d does not fit", filterSize, stride),
		}
	}

	out := New(d, outH, outW)
	coords := &CoordMap{shape: Shape{d, outH, outW}, coords: make([]Coord, d*outH*outW)}
	in := input.data
	outPlane := outH * outW

	r.For(len(out.data), func(idx int) {
		z := idx / outPlane
		oy := (idx % outPlane) / outW
		ox := idx % outW
		base := z * h * w

		bestY, bestX := oy*stride, ox*stride
		best := in[base+bestY*w+bestX]
		for ky := 0; ky < filterSize; ky++ {
			iy := oy*stride + ky
			for kx := 0; kx < filterSize; kx++ {
				ix := ox*stride + kx
				if v := in[base+iy*w+ix]; v > best {
					best, bestY, bestX = v, iy, ix
				}
			}
		}
		out.data[idx] = best
		coords.coords[idx] = Coord{X: bestX, Y: bestY}
	})
	return out, coords, nil
}

// RouteMax scatters a pooled gradient back onto a zero tensor of the input shape,
// sending each element to the coordinate recorded in coords.
func RouteMax(dOut *Tensor, coords *CoordMap, inputShape Shape) (*Tensor, error) {
	if !dOut.shape.Equal(coords.shape) {
		return nil, &DimensionError{Op: "route max", A: dOut.shape, B: coords.shape, Reason: "gradient does not match pooled shape"}
	}
	if len(inputShape) != 3 || inputShape[0] != coords.shape[0] {
		return nil, &DimensionError{Op: "route max", A: inputShape, B: coords.shape, Reason: "input depth does not match pooled depth"}
	}
	dIn := New(inputShape...)
	h, w := inputShape[1], inputShape[2]
	outPlane := coords.shape[1] * coords.shape[2]
	for idx, g := range dOut.data {
		c := coords.coords[idx]
		z := idx / outPlane
		dIn.data[z*h*w+c.Y*w+c.X] += g
	}
	return dIn, nil
}
