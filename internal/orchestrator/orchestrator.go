// Package orchestrator drives one chat request end to end: it resolves
// the provider, owns the conversation's broadcast channel, manages the
// draft-then-finalize message lifecycle, fans the provider stream out to
// the client and the persistence accumulator, and guarantees exactly one
// terminal event and consistent cleanup on every exit path.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/broadcast"
	"github.com/lumenchat/stream-platform/internal/errclass"
	"github.com/lumenchat/stream-platform/internal/ledger"
	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/internal/provider"
	"github.com/lumenchat/stream-platform/internal/resolver"
	"github.com/lumenchat/stream-platform/internal/search"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
	"github.com/lumenchat/stream-platform/pkg/metrics"
)

// outBuffer bounds pending client-facing events between the pipeline and
// the writer loop.
const outBuffer = 64

// Request is one chat turn to stream.
type Request struct {
	ConversationID string
	UserID         string
	Provider       string
	Model          string
	Content        string
	WebSearch      bool
}

// Sink receives client-facing events in order. It is called from a
// single goroutine.
type Sink func(ev model.StreamEvent) error

// Orchestrator is the per-conversation stream driver.
type Orchestrator struct {
	resolver *resolver.Resolver
	registry *broadcast.Registry
	messages store.Messages
	ledger   *ledger.Ledger
	search   *search.Service
	timeout  time.Duration
	log      *logger.Logger
}

// New creates an orchestrator. searchSvc may be nil when web search is
// not configured.
func New(
	res *resolver.Resolver,
	registry *broadcast.Registry,
	messages store.Messages,
	led *ledger.Ledger,
	searchSvc *search.Service,
	timeout time.Duration,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver: res,
		registry: registry,
		messages: messages,
		ledger:   led,
		search:   searchSvc,
		timeout:  timeout,
		log:      log,
	}
}

// session is the in-memory state of one request.
type session struct {
	draftID   string
	content   strings.Builder
	thinking  strings.Builder
	persisted bool
}

// Stream runs one request through the full lifecycle and emits the
// client-visible event sequence into sink: a synthetic Start, merged
// side-channel events, provider tokens in arrival order, and exactly one
// terminal End or Error. The returned error is for logging only; every
// failure has already been surfaced to the client as the terminal event.
func (o *Orchestrator) Stream(ctx context.Context, req Request, sink Sink) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	log := o.log.WithConversation(req.ConversationID)
	start := time.Now()

	sel, err := o.resolver.Resolve(ctx, req.UserID, req.Provider, req.Model)
	if err != nil {
		// Configuration error: nothing registered, drafted, or called
		// yet, so there is nothing to clean up.
		_ = sink(model.Error{Message: errclass.Classify(err).UserMessage})
		log.Error("model resolution failed", zap.Error(err))
		return err
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	// The broadcast channel is torn down exactly once on every exit
	// path; Unregister is a no-op if a newer stream replaced us.
	side := o.registry.Register(req.ConversationID)
	defer o.registry.Unregister(req.ConversationID, side)

	out := make(chan model.StreamEvent, outBuffer)
	writerDone := make(chan struct{})
	go writeLoop(out, sink, writerDone)

	stopSide := make(chan struct{})
	sideDone := make(chan struct{})
	go o.sideLoop(ctx, side, out, stopSide, sideDone)

	sess := &session{}

	// finish stops the side merge, emits the terminal event last, and
	// waits for the writer to drain.
	finish := func(terminal model.StreamEvent) {
		close(stopSide)
		<-sideDone
		out <- terminal
		close(out)
		<-writerDone
	}

	fail := func(cause error) error {
		cls := errclass.Classify(cause)
		o.cleanup(sess, log)
		finish(model.Error{Message: cls.UserMessage})
		metrics.RecordStream(sel.Provider.Name(), "error", time.Since(start).Seconds())
		log.Error("stream failed",
			zap.String("provider", sel.Provider.Name()),
			zap.String("kind", string(cls.Kind)),
			zap.Bool("retryable", cls.Retryable),
			zap.Error(cause))
		return cause
	}

	out <- model.Start{ConversationID: req.ConversationID}

	// DRAFTING: the assistant row exists before any provider bytes so
	// mid-stream tool calls can reference a real message id.
	draftID, err := o.messages.CreateDraftMessage(ctx, req.ConversationID, model.RoleAssistant, model.DraftPlaceholder)
	if err != nil {
		return fail(err)
	}
	sess.draftID = draftID

	prompt, err := o.buildPrompt(ctx, req, draftID)
	if err != nil {
		return fail(err)
	}

	// STREAMING: open the upstream call and normalize it through the
	// provider's dialect adapter.
	body, err := sel.Provider.OpenStream(ctx, provider.ChatRequest{Model: sel.Model, Messages: prompt})
	if err != nil {
		return fail(err)
	}
	defer body.Close()

	events := sel.Provider.Adapter().Parse(ctx, body)

	// Hot fan-out: one reader, two consumers, both attached before the
	// first token is forwarded. Each consumer sees every event exactly
	// once and in order; the upstream is read once.
	passCh := make(chan model.StreamEvent, outBuffer)
	accCh := make(chan model.StreamEvent, outBuffer)
	go fanOut(events, passCh, accCh)

	passDone := make(chan struct{})
	go o.passLoop(ctx, sel.Provider.Name(), passCh, out, passDone)

	streamErr := o.accumulate(sess, accCh)
	<-passDone

	if ctx.Err() != nil {
		return fail(ctx.Err())
	}
	if streamErr != nil {
		return fail(streamErr)
	}

	// FINALIZING: overwrite the placeholder with the accumulated text.
	if err := o.messages.UpdateMessageContent(ctx, draftID, sess.content.String(), sess.thinking.String()); err != nil {
		return fail(err)
	}
	sess.persisted = true

	finish(model.End{MessageID: draftID})
	metrics.RecordStream(sel.Provider.Name(), "success", time.Since(start).Seconds())
	log.Info("stream complete",
		zap.String("provider", sel.Provider.Name()),
		zap.String("model", sel.Model),
		zap.String("message_id", draftID),
		zap.Int("content_bytes", sess.content.Len()))
	return nil
}

// writeLoop is the single consumer of the merged event sequence. Once
// the sink fails (client gone) it keeps draining so the pipeline never
// blocks.
func writeLoop(out <-chan model.StreamEvent, sink Sink, done chan<- struct{}) {
	defer close(done)
	var sinkErr error
	for ev := range out {
		if sinkErr == nil {
			sinkErr = sink(ev)
		}
	}
}

// sideLoop forwards broadcast-channel events into the merged output as
// they arrive, until told to stop or the channel is closed (replaced).
func (o *Orchestrator) sideLoop(ctx context.Context, side <-chan model.StreamEvent, out chan<- model.StreamEvent, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-side:
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fanOut multiplexes the adapter's event sequence to both consumers.
func fanOut(events <-chan model.StreamEvent, passCh, accCh chan<- model.StreamEvent) {
	defer close(passCh)
	defer close(accCh)
	for ev := range events {
		passCh <- ev
		accCh <- ev
	}
}

// passLoop forwards Chunk and Thinking events to the client immediately.
// It drains to completion even after cancellation so the fan-out never
// stalls; cancellation ends the upstream read, which closes the channel.
func (o *Orchestrator) passLoop(ctx context.Context, providerName string, passCh <-chan model.StreamEvent, out chan<- model.StreamEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range passCh {
		switch ev.(type) {
		case model.Chunk, model.Thinking:
			if ctx.Err() == nil {
				out <- ev
				metrics.StreamEventsTotal.WithLabelValues(providerName, model.WireType(ev)).Inc()
			}
		}
	}
}

// accumulate consumes the persistence copy of the stream, building the
// full content and thinking text. A Final chunk is a whole-answer replay
// and supersedes what was accumulated so far. A trailing Error event
// from the adapter is returned as the stream failure.
func (o *Orchestrator) accumulate(sess *session, accCh <-chan model.StreamEvent) error {
	var streamErr error
	for ev := range accCh {
		switch e := ev.(type) {
		case model.Chunk:
			if e.Final {
				sess.content.Reset()
			}
			sess.content.WriteString(e.Content)
		case model.Thinking:
			sess.thinking.WriteString(e.Content)
		case model.Error:
			streamErr = errors.New(e.Message)
		}
	}
	return streamErr
}

// cleanup runs the FAILED branch: when nothing was persisted yet, the
// draft message and its ledger rows are removed best-effort. Once
// content has been finalized the draft is kept and no delete runs.
func (o *Orchestrator) cleanup(sess *session, log *logger.Logger) {
	if sess.persisted || sess.draftID == "" {
		return
	}

	// Cleanup must proceed even when the request context is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.ledger.DeleteByMessage(ctx, sess.draftID); err != nil {
		log.Warn("failed to delete tool-call records for draft",
			zap.String("message_id", sess.draftID), zap.Error(err))
	}
	if err := o.messages.DeleteMessage(ctx, sess.draftID); err != nil {
		log.Warn("failed to delete draft message",
			zap.String("message_id", sess.draftID), zap.Error(err))
	}
}

// buildPrompt runs the optional web search and assembles the upstream
// message list from the conversation history, which already contains the
// current user turn.
func (o *Orchestrator) buildPrompt(ctx context.Context, req Request, draftID string) ([]provider.ChatMessage, error) {
	history, err := o.messages.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	var prompt []provider.ChatMessage

	if req.WebSearch && o.search != nil {
		results, err := o.search.Run(ctx, req.ConversationID, draftID, req.Content)
		if err != nil {
			// Search is best-effort; the chat continues without it.
			o.log.Warn("web search failed", zap.Error(err))
		} else if len(results) > 0 {
			prompt = append(prompt, provider.ChatMessage{
				Role:    "system",
				Content: formatSearchContext(req.Content, results),
			})
		}
	}

	for _, msg := range history {
		if msg.ID == draftID || msg.Content == model.DraftPlaceholder {
			continue
		}
		prompt = append(prompt, provider.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return prompt, nil
}

func formatSearchContext(query string, results []model.SearchResult) string {
	var b strings.Builder
	b.WriteString("Web search results for \"")
	b.WriteString(query)
	b.WriteString("\":\n")
	for i, r := range results {
		if i >= 5 {
			break
		}
		b.WriteString("- ")
		b.WriteString(r.Title)
		b.WriteString(" (")
		b.WriteString(r.URL)
		b.WriteString("): ")
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}
