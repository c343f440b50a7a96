package knowledge

import (
	"context"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/openai"
)

// Clock abstracts wall time and delays so readiness polling can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// storeState tracks a knowledge store through its readiness lifecycle.
type storeState int

const (
	stateCreated storeState = iota
	statePopulating
	stateReady
	stateFailed
	stateTimedOut
)

func (s storeState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case statePopulating:
		return "populating"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// readinessPoller waits for a knowledge store's files to finish indexing.
type readinessPoller struct {
	index    Index
	storeID  string
	interval time.Duration
	timeout  time.Duration
	clock    Clock
}

// wait polls the store at a fixed interval until it reaches a terminal state
// or the overall timeout elapses. Returns the terminal state; a non-nil error
// means the poll itself failed (listing error or cancelled context).
func (p *readinessPoller) wait(ctx context.Context) (storeState, error) {
	deadline := p.clock.Now().Add(p.timeout)
	state := stateCreated

	for {
		files, err := p.index.ListFiles(ctx, p.storeID)
		if err != nil {
			return stateFailed, err
		}

		state = classifyFiles(files)
		if state == stateReady || state == stateFailed {
			return state, nil
		}

		if !p.clock.Now().Before(deadline) {
			return stateTimedOut, nil
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return state, err
		}
	}
}

// classifyFiles derives the store state from per-file indexing statuses.
// The store is ready as soon as at least one file completed and none are
// still processing; if every file reached a terminal state without a single
// completion, the store is failed.
func classifyFiles(files []openai.StoreFile) storeState {
	if len(files) == 0 {
		return statePopulating
	}

	var completed, inProgress int
	for _, f := range files {
		switch f.Status {
		case openai.FileStatusCompleted:
			completed++
		case openai.FileStatusInProgress:
			inProgress++
		}
	}

	if inProgress > 0 {
		return statePopulating
	}
	if completed > 0 {
		return stateReady
	}
	return stateFailed
}
