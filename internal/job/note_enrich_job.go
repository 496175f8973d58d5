package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// PendingProcessor enriches notes edited since their last enrichment.
type PendingProcessor interface {
	ProcessPending(ctx context.Context, delay time.Duration) (int, error)
}

type NoteEnrichJob struct {
	processor PendingProcessor
	delay     time.Duration
}

// NewNoteEnrichJob skips notes edited within the last delaySeconds so that
// a note being typed is not enriched on every save.
func NewNoteEnrichJob(processor PendingProcessor, delaySeconds int64) *NoteEnrichJob {
	return &NoteEnrichJob{processor: processor, delay: time.Duration(delaySeconds) * time.Second}
}

func (j *NoteEnrichJob) Name() string {
	return "note_enrich"
}

func (j *NoteEnrichJob) Run(ctx context.Context) error {
	if j.processor == nil {
		return nil
	}
	count, err := j.processor.ProcessPending(ctx, j.delay)
	if count > 0 {
		logutil.GetLogger(ctx).Info("notes enriched", zap.Int("count", count))
	}
	return err
}
