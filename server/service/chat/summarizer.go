package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/confidant/server/ai"
	"github.com/hrygo/confidant/server/internal/observability"
	"github.com/hrygo/confidant/store"
)

const (
	// DefaultSummaryInterval is the message_count multiple that triggers a summary.
	DefaultSummaryInterval = 20

	summaryInstruction = "Summarize this conversation in 2-3 sentences, focusing on key topics and context that would be important for continuing the conversation."
	summaryMaxTokens   = 200
)

// SummaryJob asks for the summary of one conversation to be regenerated.
type SummaryJob struct {
	ConversationID int32
	Model          string
}

// SummaryScheduler accepts summary jobs without blocking the caller.
type SummaryScheduler interface {
	Schedule(job SummaryJob) bool
}

// SummarizerConfig configures the summarizer worker pool.
type SummarizerConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single summarization, provider call included.
	Timeout time.Duration
}

// Summarizer folds a conversation into a short rolling summary. Jobs are
// consumed by a fixed pool of workers; failures never reach the chat turn
// that triggered them and are reported on Errors instead.
type Summarizer struct {
	store     Store
	completer Completer
	metrics   *observability.Metrics
	config    SummarizerConfig

	jobs chan SummaryJob
	errs chan error

	mu     sync.Mutex
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewSummarizer creates a summarizer. Call Start before scheduling jobs.
func NewSummarizer(store Store, completer Completer, metrics *observability.Metrics, cfg SummarizerConfig) *Summarizer {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Summarizer{
		store:     store,
		completer: completer,
		metrics:   metrics,
		config:    cfg,
		jobs:      make(chan SummaryJob, cfg.QueueSize),
		errs:      make(chan error, cfg.QueueSize),
	}
}

// Start launches the workers. They run until ctx is done or Stop is called.
func (s *Summarizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < s.config.Workers; i++ {
		s.group.Go(func() error {
			s.work(ctx)
			return nil
		})
	}
	slog.Info("summarizer started", slog.Int("workers", s.config.Workers))
}

// Stop cancels the workers and waits for them to return. Queued jobs are discarded.
func (s *Summarizer) Stop() error {
	s.mu.Lock()
	group, cancel := s.group, s.cancel
	s.group, s.cancel = nil, nil
	s.mu.Unlock()

	if group == nil {
		return nil
	}
	cancel()
	return group.Wait()
}

// Schedule enqueues job and reports whether it was accepted. It never blocks;
// when the queue is full the job is dropped and the drop is reported on Errors.
func (s *Summarizer) Schedule(job SummaryJob) bool {
	select {
	case s.jobs <- job:
		s.metrics.SummaryQueueLength.Set(float64(len(s.jobs)))
		return true
	default:
		s.metrics.SummariesTotal.WithLabelValues("dropped").Inc()
		s.report(fmt.Errorf("summary queue full, dropped job for conversation %d", job.ConversationID))
		return false
	}
}

// Errors returns the channel summarization failures are published on.
// Errors are dropped when nobody drains the channel.
func (s *Summarizer) Errors() <-chan error {
	return s.errs
}

func (s *Summarizer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.metrics.SummaryQueueLength.Set(float64(len(s.jobs)))
			jobCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
			err := s.Summarize(jobCtx, job)
			cancel()
			if err != nil {
				s.metrics.SummariesTotal.WithLabelValues("failure").Inc()
				slog.Warn("summary generation failed",
					slog.Int(observability.LogFieldConversationID, int(job.ConversationID)),
					slog.String("error", err.Error()))
				s.report(err)
				continue
			}
			s.metrics.SummariesTotal.WithLabelValues("success").Inc()
		}
	}
}

func (s *Summarizer) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Summarize regenerates the summary of a conversation from its full history
// and overwrites the stored one.
func (s *Summarizer) Summarize(ctx context.Context, job SummaryJob) error {
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &job.ConversationID})
	if err != nil {
		return fmt.Errorf("failed to load messages for conversation %d: %w", job.ConversationID, err)
	}
	if len(messages) == 0 {
		return nil
	}

	summary, err := s.completer.Complete(ctx, ai.CompletionRequest{
		Model: job.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: summaryInstruction},
			{Role: ai.RoleUser, Content: Transcript(messages)},
		},
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to generate summary for conversation %d: %w", job.ConversationID, err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("empty summary for conversation %d", job.ConversationID)
	}
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:      job.ConversationID,
		Summary: &summary,
	}); err != nil {
		return fmt.Errorf("failed to save summary for conversation %d: %w", job.ConversationID, err)
	}

	slog.Debug("conversation summarized",
		slog.Int(observability.LogFieldConversationID, int(job.ConversationID)),
		slog.Int("message_count", len(messages)))
	return nil
}

// Transcript flattens messages into "role: content" lines, oldest first.
func Transcript(messages []*store.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
