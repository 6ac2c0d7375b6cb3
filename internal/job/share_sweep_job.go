package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/service"
)

// ShareSweepJob marks shares whose codes ran out. Records are kept for audit;
// only the state flips.
type ShareSweepJob struct {
	shares *service.ShareService
}

func NewShareSweepJob(shares *service.ShareService) *ShareSweepJob {
	return &ShareSweepJob{shares: shares}
}

func (j *ShareSweepJob) Name() string {
	return "share_sweep"
}

func (j *ShareSweepJob) Run(ctx context.Context) error {
	if j.shares == nil {
		return nil
	}
	n, err := j.shares.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired shares swept", zap.Int64("count", n))
	}
	return nil
}
