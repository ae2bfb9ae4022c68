package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

func main() {
	fmt.Println("=== XOR Training Example ===")

	// XOR is not linearly separable, so the dense path needs a hidden layer.
	// Inputs enter as a 2x1x1 volume and are flattened before the FC layers.
	shape := []layer.Spec{
		layer.Input(2, 1, 1),
		layer.Flatten(2, 1, 1),
		layer.FC(4, activations.TanhKind),
		layer.FC(2, activations.SigmoidKind),
	}
	for _, s := range shape {
		fmt.Println(" ", s)
	}

	network, err := net.New(shape, net.WithSeed(42), net.WithLearningRate(0.5))
	if err != nil {
		log.Fatal(err)
	}

	inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	var data []net.Example
	for _, x := range inputs {
		class := int(x[0]) ^ int(x[1])
		out := []float64{0, 0}
		out[class] = 1
		data = append(data, net.Example{Input: tensor.Must(tensor.FromSlice(x, 1, 1, 2)), Output: out})
	}

	err = network.SGD(context.Background(), net.TrainConfig{
		Dataset:   data,
		Epochs:    3000,
		Callbacks: []net.Callback{net.Logger{Interval: 500}},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("\nTesting trained network:")
	for i, ex := range data {
		class, err := network.Predict(ex.Input)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Input: %v, Predicted: %d, Target: %d\n", inputs[i], class, tensor.ArgMax(ex.Output))
	}

	path := filepath.Join(os.TempDir(), "xor_network.json")
	fmt.Println("\nSaving network to", path)
	if err := network.Save(path); err != nil {
		log.Fatalf("Error saving network: %v", err)
	}
	loaded, err := net.Load(path)
	if err != nil {
		log.Fatalf("Error loading network: %v", err)
	}

	fmt.Println("Verifying loaded network:")
	allMatch := true
	for i, ex := range data {
		a, _ := network.Forward(ex.Input)
		b, _ := loaded.Forward(ex.Input)
		match := "OK"
		if math.Abs(a.Data()[1]-b.Data()[1]) > 0 {
			match = "MISMATCH"
			allMatch = false
		}
		fmt.Printf("Input: %v, Original: %.4f, Loaded: %.4f [%s]\n", inputs[i], a.Data()[1], b.Data()[1], match)
	}
	if !allMatch {
		log.Fatal("predictions differ between original and loaded network")
	}
	fmt.Println("\nSUCCESS: All predictions match between original and loaded network!")
}
