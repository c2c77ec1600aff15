package observability

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray subsegment bookkeeping for storage calls
type Tracer struct {
	serviceName string
}

// NewTracer creates a tracer for the named service
func NewTracer(serviceName string) *Tracer {
	return &Tracer{serviceName: serviceName}
}

// TraceFunction runs fn inside a named subsegment, recording any error
// on the segment before returning it
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, seg := xray.BeginSubsegment(ctx, name)
	err := fn(ctx)
	if err != nil {
		seg.AddError(err)
	}
	seg.Close(nil)
	return err
}

// AddAnnotation attaches an indexed annotation to the current segment
func (t *Tracer) AddAnnotation(ctx context.Context, key, value string) {
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}
