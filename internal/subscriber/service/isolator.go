package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	aaadomain "github.com/smallbiznis/netbill/internal/aaa/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	"github.com/smallbiznis/netbill/internal/subscriber/domain"
	"github.com/smallbiznis/netbill/pkg/workpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Config       config.Config
	Subscribers  domain.Repository
	AAA          aaadomain.Store
	Disconnector aaadomain.Disconnector
}

type Isolator struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	loc          *time.Location
	group        string
	priority     int
	workers      int
	subscribers  domain.Repository
	aaa          aaadomain.Store
	disconnector aaadomain.Disconnector
}

func NewIsolator(p Params) *Isolator {
	group := p.Config.Isolir.Group
	if group == "" {
		group = "isolir"
	}
	priority := p.Config.Isolir.Priority
	if priority <= 0 {
		priority = 1
	}
	return &Isolator{
		db:           p.DB,
		log:          p.Log.Named("subscriber.isolator"),
		clock:        p.Clock,
		loc:          p.Config.Location(),
		group:        group,
		priority:     priority,
		workers:      p.Config.Scheduler.Workers,
		subscribers:  p.Subscribers,
		aaa:          p.AAA,
		disconnector: p.Disconnector,
	}
}

// IsolateExpiredSubscribers moves every active subscriber whose expiry date
// has passed into the restricted group and kicks their live sessions.
// A subscriber expiring today stays active until the business day rolls
// over. Per-subscriber failures are counted in the result.
func (s *Isolator) IsolateExpiredSubscribers(ctx context.Context) (domain.IsolationResult, error) {
	var result domain.IsolationResult

	now := s.clock.Now()
	today := clock.DateOf(now, s.loc)
	items, err := s.subscribers.ListExpiredActive(ctx, today)
	if err != nil {
		return result, fmt.Errorf("list expired subscribers: %w", err)
	}
	result.Selected = len(items)
	if len(items) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	err = workpool.ForEach(ctx, s.workers, items, func(ctx context.Context, sub domain.Subscriber) {
		outcome := s.isolate(ctx, sub, now)

		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case outcomeFailed:
			result.Failed++
		case outcomeIsolated:
			result.Isolated++
		case outcomeDisconnectFailed:
			result.DisconnectFailed++
		}
	})
	return result, err
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeFailed
	outcomeIsolated
	outcomeDisconnectFailed
)

// isolate rewrites the AAA rows and the subscriber status in one
// transaction, then disconnects. A failed transaction leaves the subscriber
// active so the next run retries it.
func (s *Isolator) isolate(ctx context.Context, sub domain.Subscriber, now time.Time) outcome {
	fields := []zap.Field{zap.String("username", sub.Username), zap.String("subscriber_id", sub.ID.String())}

	var isolated bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.aaa.WithTrx(tx).Isolate(ctx, aaadomain.IsolateRequest{
			Username: sub.Username,
			Password: sub.Password,
			Group:    s.group,
			Priority: s.priority,
		}); err != nil {
			return fmt.Errorf("isolate aaa: %w", err)
		}
		ok, err := s.subscribers.WithTrx(tx).MarkIsolated(ctx, sub.ID, now)
		if err != nil {
			return fmt.Errorf("mark isolated: %w", err)
		}
		isolated = ok
		return nil
	})
	if err != nil {
		obslogger.ItemFailed(ctx, s.log, "isolate", err, fields...)
		return outcomeFailed
	}
	if !isolated {
		return outcomeUnchanged
	}

	obslogger.WithContext(ctx, s.log).Info("subscriber.isolated",
		append(fields, zap.String("group", s.group), zap.Time("expiry_date", sub.ExpiryDate))...)

	if s.disconnector == nil {
		return outcomeIsolated
	}
	if _, err := s.disconnector.Disconnect(ctx, sub.Username); err != nil {
		obslogger.ItemFailed(ctx, s.log, "disconnect", err, fields...)
		return outcomeDisconnectFailed
	}
	return outcomeIsolated
}
