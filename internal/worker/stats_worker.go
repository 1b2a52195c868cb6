package worker

import (
	"context"
	"log/slog"

	"voting-app/internal/metrics"
)

type VoteEvent struct {
	PollID   int64
	ChoiceID int64
	UserID   int64
}

// StatsWorker consumes committed-vote events off the handler channel and
// records them as metrics, keeping counter work out of the request path.
type StatsWorker struct {
	Ch  <-chan VoteEvent
	Log *slog.Logger
}

func NewStatsWorker(ch <-chan VoteEvent, log *slog.Logger) *StatsWorker {
	if log == nil {
		log = slog.Default()
	}
	return &StatsWorker{Ch: ch, Log: log}
}

func (w *StatsWorker) Run(ctx context.Context) {
	w.Log.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("stats worker stopped")
			return
		case ev := <-w.Ch:
			metrics.IncVote(ev.PollID)
			w.Log.Debug("vote recorded",
				"poll_id", ev.PollID,
				"choice_id", ev.ChoiceID,
			)
		}
	}
}
