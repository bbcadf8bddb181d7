package instrumentation

import (
	"context"

	"github.com/teemow/invoiceflow/internal/invoice"
)

// InstrumentedInference wraps an inference collaborator and records the
// outcome of every call.
type InstrumentedInference struct {
	next    invoice.Inference
	metrics *Metrics
}

// NewInstrumentedInference wraps next with call metrics.
func NewInstrumentedInference(next invoice.Inference, metrics *Metrics) *InstrumentedInference {
	return &InstrumentedInference{
		next:    next,
		metrics: metrics,
	}
}

// ExtractFromImages delegates to the wrapped collaborator and records status.
func (i *InstrumentedInference) ExtractFromImages(ctx context.Context, images [][]byte, instruction string) (string, error) {
	text, err := i.next.ExtractFromImages(ctx, images, instruction)
	if err != nil {
		i.metrics.RecordInference(ctx, "error")
		return "", err
	}
	i.metrics.RecordInference(ctx, "success")
	return text, nil
}
