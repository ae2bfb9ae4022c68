// Package dataset reads and writes labeled image records and turns them into
// training examples.
//
// A binary dataset is a sequence of fixed-size records, each holding one label
// byte followed by Depth*Size*Size pixel bytes in channel, row, column order.
// This is the layout of the CIFAR-10 binary batches.
package dataset

import (
	"errors"
	"fmt"
	"os"

	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// ErrFormat is wrapped by every decoding error.
var ErrFormat = errors.New("dataset: invalid format")

// Format describes the images stored in a dataset.
type Format struct {
	Depth int // color channels, 1 or 3
	Size  int // width and height in pixels
}

// CIFAR10 is the format of the CIFAR-10 binary batches.
var CIFAR10 = Format{Depth: 3, Size: 32}

// Pixels returns the number of pixel bytes in a record.
func (f Format) Pixels() int { return f.Depth * f.Size * f.Size }

// RecordSize returns the size in bytes of one record.
func (f Format) RecordSize() int { return f.Pixels() + 1 }

func (f Format) validate() error {
	if f.Depth <= 0 || f.Size <= 0 {
		return fmt.Errorf("%w: depth %d and size %d must be positive", ErrFormat, f.Depth, f.Size)
	}
	return nil
}

// Record is one labeled image.
type Record struct {
	Label  int
	Pixels []byte // Depth*Size*Size bytes, channel-major
}

// Tensor returns the image as a Depth x Size x Size tensor with pixels scaled
// to [0, 1]. The record must hold exactly f.Pixels() pixels.
func (r Record) Tensor(f Format) (*tensor.Tensor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if len(r.Pixels) != f.Pixels() {
		return nil, fmt.Errorf("%w: %d pixels, want %d", ErrFormat, len(r.Pixels), f.Pixels())
	}
	t := tensor.New(f.Depth, f.Size, f.Size)
	data := t.Data()
	for i, p := range r.Pixels {
		data[i] = float64(p) / 255
	}
	return t, nil
}

// Example pairs the scaled image with a one-hot label of length classes.
func (r Record) Example(f Format, classes int) (net.Example, error) {
	if r.Label < 0 || r.Label >= classes {
		return net.Example{}, fmt.Errorf("%w: label %d out of range for %d classes", ErrFormat, r.Label, classes)
	}
	input, err := r.Tensor(f)
	if err != nil {
		return net.Example{}, err
	}
	return net.Example{Input: input, Output: OneHot(r.Label, classes)}, nil
}

// OneHot returns a vector of length classes with a 1 at label.
func OneHot(label, classes int) []float64 {
	v := make([]float64, classes)
	if label >= 0 && label < classes {
		v[label] = 1
	}
	return v
}

// Examples converts records into training examples.
func Examples(records []Record, f Format, classes int) ([]net.Example, error) {
	out := make([]net.Example, len(records))
	for i, r := range records {
		ex, err := r.Example(f, classes)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = ex
	}
	return out, nil
}

// Decode splits buf into records. The length of buf must be a multiple of the
// record size.
func Decode(buf []byte, f Format) ([]Record, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	size := f.RecordSize()
	if len(buf)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of the %d byte record", ErrFormat, len(buf), size)
	}

	records := make([]Record, len(buf)/size)
	for n := range records {
		row := buf[n*size : (n+1)*size]
		records[n] = Record{
			Label:  int(row[0]),
			Pixels: append([]byte(nil), row[1:]...),
		}
	}
	return records, nil
}

// Encode is the inverse of Decode.
func Encode(records []Record, f Format) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(records)*f.RecordSize())
	for i, r := range records {
		if r.Label < 0 || r.Label > 255 {
			return nil, fmt.Errorf("%w: record %d: label %d does not fit in a byte", ErrFormat, i, r.Label)
		}
		if len(r.Pixels) != f.Pixels() {
			return nil, fmt.Errorf("%w: record %d: %d pixels, want %d", ErrFormat, i, len(r.Pixels), f.Pixels())
		}
		buf = append(buf, byte(r.Label))
		buf = append(buf, r.Pixels...)
	}
	return buf, nil
}

// ReadFile decodes a binary dataset file.
func ReadFile(filename string, f Format) ([]Record, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Decode(buf, f)
}

// WriteFile encodes records into a binary dataset file.
func WriteFile(filename string, records []Record, f Format) error {
	buf, err := Encode(records, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// Split splits records at the given ratio (0.0 to 1.0) into train and test.
func Split(records []Record, ratio float64) (train, test []Record) {
	if ratio <= 0 {
		return nil, records
	}
	if ratio >= 1 {
		return records, nil
	}
	i := int(float64(len(records)) * ratio)
	return records[:i], records[i:]
}
