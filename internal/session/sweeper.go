package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

const sweepTimeout = 30 * time.Second

// Sweeper runs Registry.Sweep on a cron schedule such as "@every 1m".
type Sweeper struct {
	cron *cron.Cron
	reg  *Registry
	log  *zap.Logger
}

func NewSweeper(reg *Registry, schedule string, log *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron: cron.New(cron.WithLocation(time.UTC)),
		reg:  reg,
		log:  kit.OrNop(log),
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("session sweeper started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	s.reg.Sweep(ctx)
}
