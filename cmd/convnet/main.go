// Command convnet trains a convolutional network on a labeled image dataset
// and reports its accuracy on a held-out split.
//
// Usage:
//
//	go run ./cmd/convnet -data data_batch_1.bin -epochs 5 -out cifar.json
//	go run ./cmd/convnet -data mnist_train.csv -depth 1 -size 28 -arch mnist
//	go run ./cmd/convnet -synthetic -depth 1 -size 12 -classes 4 -epochs 20
//
// Binary datasets hold records of one label byte and depth*size*size pixel
// bytes, the CIFAR-10 layout. Files ending in .csv hold a label column followed
// by the pixel values. -arch takes a preset name or a markup file, and -config
// reads any of the flags from a YAML file.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"github.com/FlavioCFOliveira/GoConvNet/internal/backend"
	"github.com/FlavioCFOliveira/GoConvNet/internal/dataset"
	"github.com/FlavioCFOliveira/GoConvNet/internal/initializer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/markup"
	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
	"github.com/FlavioCFOliveira/GoConvNet/internal/worker"
)

func main() {
	data := flag.String("data", "", "Dataset file, binary records or .csv")
	synthetic := flag.Bool("synthetic", false, "Train on generated images instead of -data")
	samples := flag.Int("samples", 200, "Number of synthetic images")
	depth := flag.Int("depth", 3, "Image color channels")
	size := flag.Int("size", 32, "Image width and height")
	classes := flag.Int("classes", 10, "Number of classes")
	split := flag.Float64("split", 0.8, "Fraction of the dataset used for training")
	arch := flag.String("arch", "", "Preset ("+strings.Join(layer.Presets(), ", ")+") or markup file")
	load := flag.String("load", "", "Resume from a saved network instead of -arch")
	epochs := flag.Int("epochs", 10, "Number of training epochs")
	lr := flag.Float64("lr", net.DefaultLearningRate, "Learning rate")
	decay := flag.Float64("decay", 0.01, "Learning rate decay")
	schedule := flag.String("schedule", "inverse", "Learning rate schedule: inverse, step, exp or plateau")
	initScheme := flag.String("init", "auto", "Weight initializer: auto, xavier or kaiming")
	backendName := flag.String("backend", "cpu", "Compute backend: cpu or parallel")
	workers := flag.Int("workers", 0, "Parallel backend workers (0 = GOMAXPROCS)")
	seed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	patience := flag.Int("patience", 0, "Stop after this many epochs without improvement (0 = never)")
	out := flag.String("out", "", "Save the trained network to this file")
	csvLog := flag.String("csv", "", "Write per-epoch progress to this CSV file")
	background := flag.Bool("worker", false, "Train through the background worker")
	dumpImage := flag.String("dump-image", "", "Write the first training image to this PNG file")
	config := flag.String("config", "", "YAML file of flag values; command-line flags take precedence")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("convnet: ")

	if *config != "" {
		if err := applyConfig(flag.CommandLine, *config); err != nil {
			log.Fatal(err)
		}
	}

	f := dataset.Format{Depth: *depth, Size: *size}
	records, err := loadRecords(*data, *synthetic, f, *classes, *samples, *seed)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	trainRecords, testRecords := dataset.Split(records, *split)
	trainSet, err := dataset.Examples(trainRecords, f, *classes)
	if err != nil {
		log.Fatalf("Failed to prepare training set: %v", err)
	}
	testSet, err := dataset.Examples(testRecords, f, *classes)
	if err != nil {
		log.Fatalf("Failed to prepare test set: %v", err)
	}
	fmt.Printf("Dataset: %d train, %d test, %dx%dx%d, %d classes\n",
		len(trainSet), len(testSet), f.Size, f.Size, f.Depth, *classes)

	if *dumpImage != "" && len(trainSet) > 0 {
		if err := writePNG(*dumpImage, trainSet[0].Input); err != nil {
			log.Fatalf("Failed to write image: %v", err)
		}
	}

	bt, err := backend.ParseType(*backendName)
	if err != nil {
		log.Fatal(err)
	}
	cfg := backend.DefaultConfig()
	if *workers > 0 {
		cfg.NumWorkers = *workers
		cfg.Enabled = *workers > 1
	}
	be, err := backend.New(bt, cfg)
	if err != nil {
		log.Fatal(err)
	}
	scheme, err := initializer.ParseScheme(*initScheme)
	if err != nil {
		log.Fatal(err)
	}

	var n *net.Network
	if *load != "" {
		n, err = net.Load(*load, net.WithBackend(be))
	} else {
		var shape []layer.Spec
		if shape, err = architecture(*arch, f, *classes); err == nil {
			n, err = net.New(shape,
				net.WithBackend(be),
				net.WithSeed(*seed),
				net.WithLearningRate(*lr),
				net.WithInitializer(scheme))
		}
	}
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}
	if err := checkCompatible(n.Shape(), f, *classes); err != nil {
		log.Fatal(err)
	}
	n.SetParam("classes", fmt.Sprint(*classes))
	n.SetParam("format", fmt.Sprintf("%dx%dx%d", f.Size, f.Size, f.Depth))

	fmt.Printf("Network (%s backend):\n%s", be.Name(), markup.Format(n.Shape()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *background {
		n, err = trainInWorker(ctx, n, trainSet, *epochs, *lr, *decay, be)
	} else {
		err = train(ctx, n, trainSet, *epochs, *lr, *decay, *schedule, *patience, *csvLog)
	}
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	if len(testSet) > 0 {
		report(n, testSet)
	}

	if *out != "" {
		if err := n.Save(*out); err != nil {
			log.Fatalf("Failed to save network: %v", err)
		}
		fmt.Printf("Network saved to %s\n", *out)
	}
}

func loadRecords(path string, synthetic bool, f dataset.Format, classes, samples int, seed int64) ([]dataset.Record, error) {
	switch {
	case synthetic:
		return syntheticRecords(f, classes, samples, seed), nil
	case path == "":
		return nil, fmt.Errorf("either -data or -synthetic is required")
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return dataset.LoadCSV(path, f, false)
	default:
		return dataset.ReadFile(path, f)
	}
}

// syntheticRecords draws noisy images where the class decides which horizontal
// band is bright.
func syntheticRecords(f dataset.Format, classes, samples int, seed int64) []dataset.Record {
	rng := rand.New(rand.NewSource(seed + 1))
	records := make([]dataset.Record, samples)
	band := max(1, f.Size/classes)
	for i := range records {
		label := i % classes
		pixels := make([]byte, f.Pixels())
		for ch := 0; ch < f.Depth; ch++ {
			for y := 0; y < f.Size; y++ {
				bright := y/band == label
				for x := 0; x < f.Size; x++ {
					v := rng.Intn(64)
					if bright {
						v += 160
					}
					pixels[(ch*f.Size+y)*f.Size+x] = byte(v)
				}
			}
		}
		records[i] = dataset.Record{Label: label, Pixels: pixels}
	}
	rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	return records
}

func architecture(arch string, f dataset.Format, classes int) ([]layer.Spec, error) {
	if arch == "" {
		return layer.Small(f.Size, f.Depth, classes), nil
	}
	if shape, ok := layer.Preset(arch); ok {
		return shape, nil
	}
	return markup.ParseFile(arch)
}

func checkCompatible(shape []layer.Spec, f dataset.Format, classes int) error {
	in, outLayer := shape[0], shape[len(shape)-1]
	if in.W != f.Size || in.H != f.Size || in.D != f.Depth {
		return fmt.Errorf("network input %dx%dx%d does not match images %dx%dx%d",
			in.W, in.H, in.D, f.Size, f.Size, f.Depth)
	}
	if outLayer.Length() != classes {
		return fmt.Errorf("network has %d outputs for %d classes", outLayer.Length(), classes)
	}
	return nil
}

func train(ctx context.Context, n *net.Network, data []net.Example, epochs int, lr, decay float64, schedule string, patience int, csvLog string) error {
	n.SetLearningRate(lr)
	sched, err := opt.ParseSchedule(schedule, n, decay)
	if err != nil {
		return err
	}
	callbacks := []net.Callback{net.Logger{Interval: 1}}
	if patience > 0 {
		callbacks = append(callbacks, net.NewEarlyStopping(patience, 1e-6))
	}
	var csvLogger *net.CSVLogger
	if csvLog != "" {
		csvLogger = net.NewCSVLogger(csvLog, false)
		callbacks = append(callbacks, csvLogger)
	}

	err = n.SGD(ctx, net.TrainConfig{
		Dataset:   data,
		Epochs:    epochs,
		Decay:     decay,
		Scheduler: sched,
		Callbacks: callbacks,
		OnEnd:     func() { fmt.Println("Training finished") },
	})
	if err == nil && csvLogger != nil {
		err = csvLogger.Err()
	}
	return err
}

func trainInWorker(ctx context.Context, n *net.Network, data []net.Example, epochs int, lr, decay float64, be backend.Backend) (*net.Network, error) {
	var buf bytes.Buffer
	if err := n.Encode(&buf); err != nil {
		return nil, err
	}
	req := worker.Request{
		Network: buf.Bytes(),
		Config:  worker.Config{Dataset: data, Epochs: epochs, LearningRate: lr, Decay: decay},
		Options: []net.Option{net.WithBackend(be)},
	}

	for ev := range worker.Run(ctx, req) {
		switch ev.Type {
		case worker.EventProgress:
			p := ev.Progress
			fmt.Printf("Epoch %d: loss = %.6f, accuracy = %.2f%%, lr = %g\n", p.Epoch, p.Loss, 100*p.Accuracy, p.LearningRate)
		case worker.EventError:
			return nil, ev.Err
		case worker.EventEnd:
			fmt.Println("Training finished")
			return net.Decode(bytes.NewReader(ev.Network), net.WithBackend(be))
		}
	}
	return nil, ctx.Err()
}

func report(n *net.Network, data []net.Example) {
	cm, err := n.ConfusionMatrix(data)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
	s := net.ConfusionMatrixStats(cm)
	fmt.Printf("\nConfusion matrix (rows actual, columns predicted):\n%s", cm)
	fmt.Printf("%-6s %9s %9s %9s %9s\n", "class", "precision", "recall", "f1", "accuracy")
	for c, cs := range s.Classes {
		fmt.Printf("%-6d %9.4f %9.4f %9.4f %9.4f\n", c, cs.Precision, cs.Recall, cs.F1, cs.Accuracy)
	}
	fmt.Printf("%-6s %9.4f %9.4f %9.4f %9.4f\n", "avg", s.Avg.Precision, s.Avg.Recall, s.Avg.F1, s.Avg.Accuracy)

	out, err := n.Forward(data[0].Input)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
	probs := tensor.Softmax(out.Data())
	fmt.Printf("First test image: label %d, predicted %d (p=%.3f)\n",
		tensor.ArgMax(data[0].Output), tensor.ArgMax(probs), probs[tensor.ArgMax(probs)])
}

func writePNG(path string, t *tensor.Tensor) error {
	img, err := dataset.ToImage(t)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return png.Encode(file, img)
}
