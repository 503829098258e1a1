package pipeline

import (
	"context"
	"fmt"

	"github.com/quarrylabs/quarry/core"
)

// Processor executes one kind of job. Implementations must be idempotent:
// the queue may run the same job more than once after a crash.
type Processor interface {
	Process(ctx context.Context, job *core.Job) error
}

// Dispatcher routes jobs to the processor registered for their type. A nil
// field means that job type is not handled by this deployment.
type Dispatcher struct {
	Embed      Processor
	Enrich     Processor
	DedupCheck Processor
	ReEmbed    Processor
	Freshness  Processor
	Scrape     Processor
}

// Handle routes one job. Unknown job types and types without a registered
// processor fail permanently: retrying cannot make a route appear.
func (d *Dispatcher) Handle(ctx context.Context, job *core.Job) error {
	var proc Processor
	switch job.Type {
	case core.JobTypeEmbed:
		proc = d.Embed
	case core.JobTypeEnrich:
		proc = d.Enrich
	case core.JobTypeDedupCheck:
		proc = d.DedupCheck
	case core.JobTypeReEmbed:
		proc = d.ReEmbed
	case core.JobTypeFreshness:
		proc = d.Freshness
	case core.JobTypeScrape:
		proc = d.Scrape
	default:
		return Permanent(fmt.Errorf("%w: %q", ErrUnknownJobType, job.Type))
	}

	if proc == nil {
		return Permanent(fmt.Errorf("%w: no processor registered for %q", ErrUnknownJobType, job.Type))
	}
	return proc.Process(ctx, job)
}
