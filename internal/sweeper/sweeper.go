// Package sweeper closes voting windows that outlived their committee's
// voting period. It runs in the worker, not the API: expiry is enforced by a
// periodic scan, and reads between deadline and sweep still see the motion open.
package sweeper

import (
	"context"
	"log"
	"time"

	committeedomain "commie/backend/internal/committee/domain"
	motiondomain "commie/backend/internal/motion/domain"
	motionservice "commie/backend/internal/motion/service"
)

// ExpiredLister finds open motions whose voting deadline passed.
type ExpiredLister interface {
	ListExpiredOpen(ctx context.Context, now time.Time) ([]*motiondomain.Motion, error)
}

// CommitteeGetter loads a committee by id.
type CommitteeGetter interface {
	GetByID(ctx context.Context, id string) (*committeedomain.Committee, error)
}

// Sweeper periodically closes expired voting windows.
type Sweeper struct {
	motions    ExpiredLister
	committees CommitteeGetter
	lifecycle  *motionservice.Service
	interval   time.Duration
}

// New returns a sweeper ticking at the given interval.
func New(motions ExpiredLister, committees CommitteeGetter, lifecycle *motionservice.Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{motions: motions, committees: committees, lifecycle: lifecycle, interval: interval}
}

// Run sweeps until ctx is canceled. One sweep runs immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if n, err := s.SweepOnce(ctx); err != nil {
			log.Printf("sweeper: sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("sweeper: closed %d expired voting window(s)", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce closes every expired open motion and returns how many settled.
// A failure on one motion is logged and does not stop the rest; the next
// sweep retries anything left open.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.motions.ListExpiredOpen(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, m := range expired {
		committee, err := s.committees.GetByID(ctx, m.CommitteeID)
		if err != nil || committee == nil {
			log.Printf("sweeper: committee %s for motion %s: %v", m.CommitteeID, m.ID, err)
			continue
		}
		if _, err := s.lifecycle.CloseExpired(ctx, committee, m); err != nil {
			log.Printf("sweeper: close motion %s: %v", m.ID, err)
			continue
		}
		closed++
	}
	return closed, nil
}
