// Command inference classifies images with a network saved by convnet.
//
// Usage:
//
//	go run ./cmd/inference -model cifar.json cat.png dog.jpg
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"sort"

	"github.com/FlavioCFOliveira/GoConvNet/internal/dataset"
	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

func main() {
	model := flag.String("model", "", "Saved network (JSON snapshot)")
	top := flag.Int("top", 3, "Number of classes to print per image")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("inference: ")

	if *model == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	n, err := net.Load(*model)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	in := n.Shape()[0]
	if in.W != in.H {
		log.Fatalf("Network input %dx%d is not square", in.W, in.H)
	}
	f := dataset.Format{Depth: in.D, Size: in.W}
	fmt.Printf("Loaded %s: %d layers, input %dx%dx%d\n", *model, n.Len(), in.W, in.H, in.D)

	for _, path := range flag.Args() {
		probs, err := classify(n, path, f)
		if err != nil {
			log.Printf("%s: %v", path, err)
			continue
		}
		fmt.Printf("%s:\n", path)
		for _, c := range ranked(probs, *top) {
			fmt.Printf("  class %d: %.2f%%\n", c, 100*probs[c])
		}
	}
}

func classify(n *net.Network, path string, f dataset.Format) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	input, err := dataset.FromImage(img, f)
	if err != nil {
		return nil, err
	}
	out, err := n.Forward(input)
	if err != nil {
		return nil, err
	}
	return tensor.Softmax(out.Data()), nil
}

// ranked returns the indices of the k largest probabilities, largest first.
func ranked(probs []float64, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if k > 0 && k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
