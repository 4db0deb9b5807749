package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/locus/pkg/core"
)

// StreamRecognizer reads newline-delimited JSON reports written by a sensor bridge.
//
//	{"activities":[{"type":"walking","confidence":80},{"type":"still","confidence":15}]}
//	{"transition":{"type":"in_vehicle","kind":"enter"}}
type StreamRecognizer struct {
	open   func() (io.ReadCloser, error)
	name   string
	logger *slog.Logger
}

// NewStreamRecognizer reads reports from r. r is closed when the subscription ends
// if it implements io.Closer.
func NewStreamRecognizer(r io.Reader, logger *slog.Logger) *StreamRecognizer {
	return &StreamRecognizer{
		open: func() (io.ReadCloser, error) {
			if rc, ok := r.(io.ReadCloser); ok {
				return rc, nil
			}
			return io.NopCloser(r), nil
		},
		name:   "reader",
		logger: orDefault(logger),
	}
}

// OpenStreamRecognizer reads reports from a file or named pipe; "-" means stdin.
// The path is opened on Subscribe so a missing or unreadable source surfaces as a
// registration failure.
func OpenStreamRecognizer(path string, logger *slog.Logger) *StreamRecognizer {
	return &StreamRecognizer{
		open: func() (io.ReadCloser, error) {
			if path == "-" {
				return io.NopCloser(os.Stdin), nil
			}
			return os.Open(path)
		},
		name:   path,
		logger: orDefault(logger),
	}
}

type wireCandidate struct {
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
}

type wireTransition struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

type wireMessage struct {
	Activities []wireCandidate `json:"activities"`
	Transition *wireTransition `json:"transition"`
	Time       *time.Time      `json:"time"`
}

// Subscribe implements Recognizer. Malformed lines are logged and skipped.
func (s *StreamRecognizer) Subscribe(ctx context.Context, transitions []core.Transition) (<-chan Report, error) {
	rc, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("open activity stream %s: %w", s.name, err)
	}

	out := make(chan Report)
	stop := context.AfterFunc(ctx, func() { _ = rc.Close() })

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer stop()
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			report, err := decodeReport(line)
			if err != nil {
				s.logger.Debug("skipping activity report", "source", s.name, "error", err)
				continue
			}
			select {
			case out <- report:
			case <-ctx.Done():
				return nil
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			s.logger.Error("activity stream failed", "source", s.name, "error", err)
			return err
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("activity stream panic", "source", s.name, "error", err)
	}))

	return out, nil
}

func decodeReport(line []byte) (Report, error) {
	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return Report{}, fmt.Errorf("invalid json: %w", err)
	}

	var at time.Time
	if msg.Time != nil {
		at = *msg.Time
	}

	if msg.Transition != nil {
		a, err := core.ParseActivity(msg.Transition.Type)
		if err != nil {
			return Report{}, err
		}
		kind := core.TransitionKind(msg.Transition.Kind)
		if kind != core.TransitionEnter && kind != core.TransitionExit {
			return Report{}, fmt.Errorf("unknown transition kind %q", msg.Transition.Kind)
		}
		return Report{Transition: &core.Transition{Activity: a, Kind: kind, Time: at}}, nil
	}

	if len(msg.Activities) == 0 {
		return Report{}, fmt.Errorf("report has neither activities nor transition")
	}
	c := core.Classification{Time: at}
	for _, wc := range msg.Activities {
		a, err := core.ParseActivity(wc.Type)
		if err != nil {
			return Report{}, err
		}
		c.Candidates = append(c.Candidates, core.Candidate{Activity: a, Confidence: wc.Confidence})
	}
	return Report{Classification: &c}, nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
