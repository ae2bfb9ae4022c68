// Package worker trains a network in the background. A request carries the
// network as a JSON snapshot; every event sent back carries the snapshot as it
// stands at that point, so the caller never shares memory with the trainer.
package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
)

// EventType tags an Event.
type EventType int

const (
	EventProgress EventType = iota // one epoch finished
	EventEnd                       // training completed
	EventError                     // training failed or was cancelled
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Config is the serializable part of net.TrainConfig.
type Config struct {
	Dataset      []net.Example `json:"dataset"`
	Epochs       int           `json:"epochs"`
	LearningRate float64       `json:"learningRate,omitempty"`
	Decay        float64       `json:"decay"`
}

// Request asks for a network to be trained. Run copies the snapshot and the
// dataset before it returns, so the caller may reuse or modify them while the
// job runs.
type Request struct {
	// ID identifies the job in every event. Run assigns a random UUID when empty.
	ID      string
	Network []byte // JSON snapshot, as written by net.Network.Encode
	Config  Config

	// Options apply when the snapshot is decoded, e.g. net.WithBackend.
	Options []net.Option `json:"-"`
}

// Event reports training progress.
type Event struct {
	ID       string       `json:"id"`
	Type     EventType    `json:"event"`
	Progress net.Progress `json:"data"`
	Network  []byte       `json:"network,omitempty"`
	Err      error        `json:"-"`
}

// Run decodes the request network and trains it on a new goroutine. It sends
// one EventProgress per epoch, then either EventEnd or EventError, and closes
// the channel. Training waits for each event to be received; once ctx is done
// pending events may be dropped.
func Run(ctx context.Context, req Request) <-chan Event {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	snapshot := append([]byte(nil), req.Network...)
	cfg := req.Config
	cfg.Dataset = cloneExamples(req.Config.Dataset)

	events := make(chan Event)
	go func() {
		defer close(events)
		send := func(ev Event) bool {
			ev.ID = id
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		n, err := net.Decode(bytes.NewReader(snapshot), req.Options...)
		if err != nil {
			send(Event{Type: EventError, Err: fmt.Errorf("worker: %w", err)})
			return
		}

		// A snapshot that cannot be encoded (e.g. weights grown to ±Inf) ends
		// the job; trainCtx stops SGD after the current epoch.
		trainCtx, stop := context.WithCancel(ctx)
		defer stop()
		var (
			last      net.Progress
			encodeErr error
		)
		err = n.SGD(trainCtx, net.TrainConfig{
			Dataset:      cfg.Dataset,
			Epochs:       cfg.Epochs,
			LearningRate: cfg.LearningRate,
			Decay:        cfg.Decay,
			OnProgress: func(p net.Progress) {
				last = p
				b, err := encode(n)
				if err != nil {
					encodeErr = err
					stop()
					return
				}
				send(Event{Type: EventProgress, Progress: p, Network: b})
			},
		})
		if encodeErr != nil {
			send(Event{Type: EventError, Progress: last, Err: fmt.Errorf("worker: epoch %d: %w", last.Epoch, encodeErr)})
			return
		}
		if err != nil {
			b, _ := encode(n)
			send(Event{Type: EventError, Progress: last, Network: b, Err: fmt.Errorf("worker: %w", err)})
			return
		}
		b, err := encode(n)
		if err != nil {
			send(Event{Type: EventError, Progress: last, Err: fmt.Errorf("worker: %w", err)})
			return
		}
		send(Event{Type: EventEnd, Progress: last, Network: b})
	}()
	return events
}

func encode(n *net.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cloneExamples(data []net.Example) []net.Example {
	if data == nil {
		return nil
	}
	out := make([]net.Example, len(data))
	for i, ex := range data {
		out[i].Output = append([]float64(nil), ex.Output...)
		if ex.Input != nil {
			out[i].Input = ex.Input.Clone()
		}
	}
	return out
}
