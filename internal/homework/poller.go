package homework

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yatube/internal/observability"

	"go.uber.org/zap"
)

// Fetcher reads status changes since a unix timestamp.
type Fetcher interface {
	Statuses(ctx context.Context, from int64) (*StatusResponse, error)
}

// Sender delivers a text message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Poller checks the API every interval and forwards each status change.
type Poller struct {
	api      Fetcher
	bot      Sender
	log      *zap.Logger
	interval time.Duration
	from     int64
}

// NewPoller returns a Poller starting from the current time.
func NewPoller(api Fetcher, bot Sender, log *zap.Logger, interval time.Duration) *Poller {
	return &Poller{
		api:      api,
		bot:      bot,
		log:      log,
		interval: interval,
		from:     time.Now().Unix(),
	}
}

// From returns the timestamp the next poll will ask from.
func (p *Poller) From() int64 { return p.from }

// SetFrom overrides the next poll timestamp.
func (p *Poller) SetFrom(ts int64) { p.from = ts }

// Run polls until ctx is cancelled. Failures are reported to the chat and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("homework bot started", zap.Duration("interval", p.interval), zap.Int64("from", p.from))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		_ = p.Tick(ctx)
		select {
		case <-ctx.Done():
			p.log.Info("homework bot stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one poll and returns its failure, if any, after reporting it.
func (p *Poller) Tick(ctx context.Context) error {
	err := p.poll(ctx)
	if err == nil {
		observability.HomeworkPolls.WithLabelValues("ok").Inc()
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}

	observability.HomeworkPolls.WithLabelValues("error").Inc()
	message := fmt.Sprintf("Сбой в работе программы: %v", err)
	p.log.Error(message, zap.Error(err))
	if sendErr := p.bot.Send(ctx, message); sendErr != nil {
		p.log.Error("failed to report error to telegram", zap.Error(sendErr))
	}
	return err
}

// poll advances from as soon as the response is well-formed, so a bad entry is reported once
// and entries already delivered are not sent again on the next tick.
func (p *Poller) poll(ctx context.Context) error {
	resp, err := p.api.Statuses(ctx, p.from)
	if err != nil {
		return err
	}
	homeworks, err := CheckResponse(resp)
	if err != nil {
		return err
	}
	if resp.CurrentDate > 0 {
		p.from = resp.CurrentDate
	}
	if len(homeworks) == 0 {
		p.log.Debug("no status changes")
	}

	var errs []error
	for _, hw := range homeworks {
		message, err := ParseStatus(hw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.bot.Send(ctx, message); err != nil {
			errs = append(errs, err)
			continue
		}
		p.log.Info("status sent", zap.String("homework", hw.HomeworkName), zap.String("status", hw.Status))
	}
	return errors.Join(errs...)
}
