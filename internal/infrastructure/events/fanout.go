package events

import (
	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// Fanout forwards every event to each configured sink in order.
type Fanout []ports.EventSink

func (f Fanout) Publish(event domain.ProgressEvent) {
	for _, sink := range f {
		sink.Publish(event)
	}
}
