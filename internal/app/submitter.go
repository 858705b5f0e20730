package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Submission reports whether a locally added quote reached the remote.
type Submission struct {
	Synced  bool
	Message string
}

// Submitter pushes new quotes to the remote collection. The local append is
// never undone when the push fails, and there is no retry queue.
type Submitter struct {
	sink     ports.RemoteQuoteSink
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(sink ports.RemoteQuoteSink, notifier ports.Notifier, logger *slog.Logger) *Submitter {
	if sink == nil || notifier == nil {
		panic("Submitter: sink and notifier are required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{
		sink:     sink,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "app.Submitter")),
	}
}

// Submit POSTs q and publishes the matching notification.
func (s *Submitter) Submit(ctx context.Context, q domain.Quote) Submission {
	n := domain.Success(domain.MsgSubmitSynced)
	sub := Submission{Synced: true, Message: domain.MsgSubmitSynced}

	if err := s.sink.SubmitQuote(ctx, q); err != nil {
		s.logger.WarnContext(ctx, "submitting quote failed", slog.Any("error", err))

		n = domain.Failure(domain.MsgSubmitFailed)
		sub = Submission{Synced: false, Message: domain.MsgSubmitFailed}
	}

	if err := s.notifier.Publish(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "publishing notification failed", slog.Any("error", err))
	}

	return sub
}
