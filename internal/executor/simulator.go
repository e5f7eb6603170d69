package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/api/internal/model"
)

// Simulator fakes the processing backend, pacing through per-step progress
// points the way the real pipeline reports them. Used in development and
// whenever no pipeline URL is configured.
type Simulator struct {
	stepDelay time.Duration
}

// NewSimulator creates a simulator that waits stepDelay between progress
// points.
func NewSimulator(stepDelay time.Duration) *Simulator {
	return &Simulator{stepDelay: stepDelay}
}

// phases per step name; percentages are within the single step.
var simulatedPhases = map[string][]struct {
	percent int
	label   string
}{
	string(model.OpStyleTransfer): {
		{15, "Extracting frames..."},
		{45, "Applying style model..."},
		{80, "Re-encoding output..."},
		{100, "Done"},
	},
	string(model.OpBackgroundRemoval): {
		{25, "Segmenting foreground..."},
		{70, "Compositing background..."},
		{100, "Done"},
	},
	string(model.OpCaptionGeneration): {
		{30, "Transcribing audio..."},
		{75, "Aligning captions..."},
		{100, "Done"},
	},
	string(model.OpAudioEnhancement): {
		{40, "Analyzing spectrum..."},
		{85, "Applying enhancement..."},
		{100, "Done"},
	},
	model.StepColorCorrection: {
		{50, "Correcting color balance..."},
		{100, "Done"},
	},
	model.StepStabilization: {
		{50, "Stabilizing motion..."},
		{100, "Done"},
	},
}

func (s *Simulator) Execute(ctx context.Context, req *Request, progress chan<- Progress) (*Result, error) {
	phases, ok := simulatedPhases[req.Step]
	if !ok {
		return nil, fmt.Errorf("unsupported pipeline step %q", req.Step)
	}

	for _, ph := range phases {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.stepDelay):
		}

		select {
		case progress <- Progress{Percent: ph.percent, Step: ph.label}:
		default:
		}
	}

	return &Result{
		PayloadRef: fmt.Sprintf("blob://edits/%s/%s", req.Step, uuid.New().String()),
	}, nil
}
