package testsupport

import (
	"context"
	"os"
	"sync"

	"podstudio/internal/media"
	"podstudio/internal/services"
)

// FakeEngine implements media.Engine without shelling out. Every produced
// output is a small non-empty file and each call is recorded in order, so
// tests can assert both the results and the sequence of engine operations.
type FakeEngine struct {
	mu    sync.Mutex
	calls []string

	// SilencePeriods is what DetectSilence reports.
	SilencePeriods []media.SilencePeriod
	// ProbeDuration is reported for every probe unless ProbeDurations has an
	// entry for the exact path.
	ProbeDuration  float64
	ProbeDurations map[string]float64
	// FailOps marks operation names that fail with a processing error.
	FailOps map[string]bool
	// EmptyOutput makes every operation produce a zero-byte file, the way a
	// crashed encoder leaves a truncated output behind.
	EmptyOutput bool
}

// NewFakeEngine returns a fake engine with a 10 second default duration.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		ProbeDuration:  10,
		ProbeDurations: make(map[string]float64),
		FailOps:        make(map[string]bool),
	}
}

// Calls returns the recorded operation names in call order.
func (e *FakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns how many times the named operation ran.
func (e *FakeEngine) CallCount(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, call := range e.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (e *FakeEngine) record(op string) error {
	e.mu.Lock()
	e.calls = append(e.calls, op)
	fail := e.FailOps[op]
	e.mu.Unlock()
	if fail {
		return services.Wrap(services.ErrProcessing, "fakeengine", op, "forced failure", nil)
	}
	return nil
}

func (e *FakeEngine) writeOutput(dst string) error {
	e.mu.Lock()
	empty := e.EmptyOutput
	e.mu.Unlock()
	if empty {
		return os.WriteFile(dst, nil, 0o644)
	}
	return os.WriteFile(dst, []byte("fake audio "+dst), 0o644)
}

func (e *FakeEngine) Probe(_ context.Context, path string) (media.ProbeResult, error) {
	if err := e.record("probe"); err != nil {
		return media.ProbeResult{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return media.ProbeResult{}, services.Wrap(services.ErrProcessing, "fakeengine", "probe", "stat failed", err)
	}
	e.mu.Lock()
	duration, ok := e.ProbeDurations[path]
	if !ok {
		duration = e.ProbeDuration
	}
	e.mu.Unlock()
	return media.ProbeResult{DurationSec: duration, MIMEType: "audio/mpeg", SizeBytes: info.Size()}, nil
}

func (e *FakeEngine) Trim(_ context.Context, _, dst string, _, _ float64) error {
	if err := e.record("trim"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}

func (e *FakeEngine) DetectSilence(_ context.Context, _ string, _ float64, _ int) ([]media.SilencePeriod, error) {
	if err := e.record("detect_silence"); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]media.SilencePeriod(nil), e.SilencePeriods...), nil
}

func (e *FakeEngine) RemoveSilence(_ context.Context, _, dst string, _ float64, _ int) error {
	if err := e.record("remove_silence"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}

func (e *FakeEngine) SuppressNoise(_ context.Context, _, dst string, _ int) error {
	if err := e.record("suppress_noise"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}

func (e *FakeEngine) CutRange(_ context.Context, _, dst string, _, _ float64) error {
	if err := e.record("cut_range"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}

func (e *FakeEngine) Concat(_ context.Context, _ []string, dst string, _ media.ConcatOptions) error {
	if err := e.record("concat"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}

func (e *FakeEngine) RenderWaveform(_ context.Context, _, dst string) error {
	if err := e.record("render_waveform"); err != nil {
		return err
	}
	return e.writeOutput(dst)
}
