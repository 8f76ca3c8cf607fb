// Package services – Orchestrator
//
// This file implements the pipeline coordinator. The orchestrator owns all
// SwapRecord persistence: the watcher, executor, and forwarder stages are pure
// functions over their inputs, and every state transition funnels through the
// repository's monotonic guard. One goroutine per confirmed swap drives the
// stages in order; a session can hold at most one running pipeline.
//
// Observability: all public methods are OpenTelemetry-instrumented; pipeline
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aptosphere/go-swap-backend/internal/domain"
	"github.com/aptosphere/go-swap-backend/internal/notify"
	"github.com/aptosphere/go-swap-backend/internal/repo"
	"github.com/aptosphere/go-swap-backend/internal/token"
)

// persistTimeout bounds the DB writes made from pipeline goroutines, which
// run detached from any request context.
const persistTimeout = 10 * time.Second

// Orchestrator coordinates quoting, confirmation, and the swap pipeline.
type Orchestrator struct {
	DB        *gorm.DB
	Quoter    *Quoter
	Watcher   *DepositWatcher
	Executor  *SwapExecutor
	Forwarder *PayoutForwarder
	Notifier  notify.Notifier

	// DepositAddress is the custodial account users are told to deposit into.
	DepositAddress string
	// ExplorerBaseURL builds transaction links for notifications.
	ExplorerBaseURL string

	Log zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(db *gorm.DB, quoter *Quoter, watcher *DepositWatcher, executor *SwapExecutor, forwarder *PayoutForwarder, notifier notify.Notifier, depositAddress, explorerBaseURL string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		DB:              db,
		Quoter:          quoter,
		Watcher:         watcher,
		Executor:        executor,
		Forwarder:       forwarder,
		Notifier:        notifier,
		DepositAddress:  depositAddress,
		ExplorerBaseURL: explorerBaseURL,
		Log:             log.With().Str("component", "orchestrator").Logger(),
		active:          make(map[string]context.CancelFunc),
	}
}

// RequestQuote prices a swap and stores it as the session's pending intent,
// replacing any prior unconfirmed intent. On rate failure nothing is stored.
func (o *Orchestrator) RequestQuote(ctx context.Context, sessionKey, fromSym, toSym, amount string) (*Quote, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "RequestQuote",
		trace.WithAttributes(attribute.String("session.key", sessionKey)),
	)
	defer span.End()

	q, err := o.Quoter.Quote(ctx, fromSym, toSym, amount)
	if err != nil {
		return nil, err
	}

	now := q.At
	intent := &domain.SwapIntent{
		SessionKey:    sessionKey,
		SourceToken:   q.From.Symbol,
		DestToken:     q.To.Symbol,
		Amount:        q.Amount.String(),
		QuoteInUnits:  q.InUnits.String(),
		QuoteOutUnits: q.OutUnits.String(),
		QuotedAt:      &now,
	}
	if err := repo.UpsertIntent(ctx, o.DB, intent); err != nil {
		return nil, err
	}
	return q, nil
}

// Reject discards the session's pending intent. ErrNoPendingIntent when there
// is nothing to discard.
func (o *Orchestrator) Reject(ctx context.Context, sessionKey string) error {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(attribute.String("session.key", sessionKey)),
	)
	defer span.End()

	if err := repo.DeleteIntent(ctx, o.DB, sessionKey); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoPendingIntent
		}
		return err
	}
	return nil
}

// Confirm promotes the session's pending intent to a SwapRecord and starts
// the pipeline. The intent is consumed so it can never drive two pipelines.
// The recipient must already be bound: discovering a missing payout address
// after the user has deposited would strand funds.
func (o *Orchestrator) Confirm(ctx context.Context, sessionKey string) (*domain.SwapRecord, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("session.key", sessionKey)),
	)
	defer span.End()

	intent, err := repo.GetIntent(ctx, o.DB, sessionKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoPendingIntent
		}
		return nil, err
	}

	binding, err := repo.GetBinding(ctx, o.DB, sessionKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRecipientUnbound
		}
		return nil, err
	}

	from, err := o.Quoter.Registry.Resolve(intent.SourceToken)
	if err != nil {
		return nil, err
	}
	to, err := o.Quoter.Registry.Resolve(intent.DestToken)
	if err != nil {
		return nil, err
	}
	inUnits, ok := new(big.Int).SetString(intent.QuoteInUnits, 10)
	if !ok || inUnits.Sign() <= 0 {
		return nil, fmt.Errorf("corrupt intent for session %s: in units %q", sessionKey, intent.QuoteInUnits)
	}
	quoteOut, ok := new(big.Int).SetString(intent.QuoteOutUnits, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt intent for session %s: out units %q", sessionKey, intent.QuoteOutUnits)
	}

	// Consuming the intent and creating the record happen in one transaction,
	// with the intent delete as the gate: of two racing confirms for the same
	// session, exactly one deletes the row, so only one record is ever
	// created. A rolled-back confirm leaves the intent in place.
	var rec *domain.SwapRecord
	err = o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.DeleteIntent(ctx, tx, sessionKey); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNoPendingIntent
			}
			return err
		}
		if active, err := repo.HasActiveSwap(ctx, tx, sessionKey); err != nil {
			return err
		} else if active {
			return ErrSwapInProgress
		}
		rec, err = repo.CreateSwap(ctx, tx, &domain.SwapRecord{
			SessionKey:      sessionKey,
			SourceToken:     from.Symbol,
			DestToken:       to.Symbol,
			RequestedAmount: intent.Amount,
			QuoteOutUnits:   intent.QuoteOutUnits,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.active[rec.ID] = cancel
	o.mu.Unlock()

	o.push(ctx, sessionKey, fmt.Sprintf(
		"Swap confirmed. Send %s %s to %s within %s to proceed.",
		intent.Amount, from.Symbol, o.DepositAddress, o.Watcher.Timeout))

	pipelinesStarted.WithLabelValues(from.Symbol, to.Symbol).Inc()
	o.wg.Add(1)
	go o.run(pctx, rec.ID, sessionKey, from, to, inUnits, quoteOut, binding.Address)

	return rec, nil
}

// Status fetches one of the session's swap records by ID. A record belonging
// to another session reads as not found, so knowing a UUID grants nothing.
func (o *Orchestrator) Status(ctx context.Context, sessionKey, id string) (*domain.SwapRecord, error) {
	rec, err := repo.GetSwap(ctx, o.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	if rec.SessionKey != sessionKey {
		return nil, ErrSwapNotFound
	}
	return rec, nil
}

// History returns a page of the session's swap audit trail, newest first.
func (o *Orchestrator) History(ctx context.Context, sessionKey string, page, pageSize int) ([]domain.SwapRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountSwaps(ctx, o.DB, sessionKey)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SwapRecord{}, 0, nil
	}
	items, err := repo.ListSwapsPage(ctx, o.DB, sessionKey, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Shutdown cancels every running pipeline and waits for them to persist their
// terminal state, or for ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.active {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one confirmed swap through deposit detection, execution, and
// payout. It is the only writer of the record's status.
func (o *Orchestrator) run(ctx context.Context, id, sessionKey string, from, to token.Coin, inUnits, quoteOut *big.Int, recipient string) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.active, id)
		o.mu.Unlock()
	}()

	pipelinesActive.Inc()
	defer pipelinesActive.Dec()
	start := time.Now()
	defer func() { pipelineDuration.Observe(time.Since(start).Seconds()) }()

	log := o.Log.With().Str("swap_id", id).Str("session", sessionKey).Logger()

	deposit, err := o.Watcher.Await(ctx, from, inUnits)
	if err != nil {
		if errors.Is(err, ErrDepositTimeout) {
			o.finish(id, sessionKey, domain.StatusTimedOut, nil,
				fmt.Sprintf("Deposit window elapsed without receiving %s. The swap was cancelled; nothing was moved.", from.Symbol))
			return
		}
		if o.interrupted(ctx, id, log) {
			return
		}
		o.fail(id, sessionKey, "deposit", err)
		return
	}
	if err := o.advance(id, domain.StatusDepositConfirmed, map[string]any{
		"deposit_units": deposit.String(),
	}); err != nil {
		log.Error().Err(err).Msg("persisting deposit confirmation failed")
		o.fail(id, sessionKey, "deposit", err)
		return
	}
	log.Info().Str("deposit_units", deposit.String()).Msg("deposit confirmed")

	output, _, err := o.Executor.Execute(ctx, from, to, deposit, quoteOut, func(txHash string) {
		if perr := o.advance(id, domain.StatusSwapSubmitted, map[string]any{
			"swap_tx_hash": txHash,
		}); perr != nil {
			log.Error().Err(perr).Str("tx_hash", txHash).Msg("persisting swap submission failed")
		}
	})
	if err != nil {
		if o.interrupted(ctx, id, log) {
			return
		}
		o.fail(id, sessionKey, "swap", err)
		return
	}
	if err := o.advance(id, domain.StatusSwapConfirmed, map[string]any{
		"output_units": output.String(),
	}); err != nil {
		o.fail(id, sessionKey, "swap", err)
		return
	}

	payoutHash, err := o.Forwarder.Forward(ctx, to, output, recipient, func(txHash string) {
		if perr := o.advance(id, domain.StatusPayoutSubmitted, map[string]any{
			"payout_tx_hash": txHash,
		}); perr != nil {
			log.Error().Err(perr).Str("tx_hash", txHash).Msg("persisting payout submission failed")
		}
	})
	if err != nil {
		if o.interrupted(ctx, id, log) {
			return
		}
		o.fail(id, sessionKey, "payout", err)
		return
	}

	o.finish(id, sessionKey, domain.StatusCompleted, nil, fmt.Sprintf(
		"Swap complete: received %s %s at %s.\nPayout: %s",
		to.FromBaseUnits(output), to.Symbol, recipient,
		notify.ExplorerLink(o.ExplorerBaseURL, payoutHash)))
	log.Info().Str("payout_tx_hash", payoutHash).Msg("swap completed")
}

// interrupted reports whether the pipeline context was cancelled (shutdown).
// The record is left at its last persisted status so the swap can be
// reconciled on restart instead of being marked failed.
func (o *Orchestrator) interrupted(ctx context.Context, id string, log zerolog.Logger) bool {
	if ctx.Err() == nil {
		return false
	}
	log.Warn().Str("swap_id", id).Msg("pipeline interrupted by shutdown")
	pipelinesFinished.WithLabelValues("interrupted").Inc()
	return true
}

// fail transitions the record to FAILED with a stage-tagged detail and sends
// the terminal notification.
func (o *Orchestrator) fail(id, sessionKey, stage string, cause error) {
	o.finishWithDetail(id, sessionKey, domain.StatusFailed,
		fmt.Sprintf("%s: %v", stage, cause),
		fmt.Sprintf("Swap failed during %s: %v. An operator has the full record.", stage, cause))
	o.Log.Error().Err(cause).Str("swap_id", id).Str("stage", stage).Msg("pipeline failed")
}

func (o *Orchestrator) finish(id, sessionKey string, status domain.SwapStatus, set map[string]any, message string) {
	if err := o.advance(id, status, set); err != nil {
		o.Log.Error().Err(err).Str("swap_id", id).Str("status", string(status)).Msg("persisting terminal status failed")
	}
	pipelinesFinished.WithLabelValues(outcomeLabel(status)).Inc()
	o.push(context.Background(), sessionKey, message)
}

func (o *Orchestrator) finishWithDetail(id, sessionKey string, status domain.SwapStatus, detail, message string) {
	o.finish(id, sessionKey, status, map[string]any{"failure_detail": detail}, message)
}

// advance persists a status transition from a pipeline goroutine with its own
// deadline, detached from the (possibly cancelled) pipeline context.
func (o *Orchestrator) advance(id string, next domain.SwapStatus, set map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return repo.AdvanceStatus(ctx, o.DB, id, next, set)
}

// push delivers a notification, logging delivery failures instead of letting
// them affect the pipeline.
func (o *Orchestrator) push(ctx context.Context, sessionKey, text string) {
	if o.Notifier == nil {
		return
	}
	if err := o.Notifier.Push(ctx, sessionKey, text); err != nil {
		o.Log.Warn().Err(err).Str("session", sessionKey).Msg("notification delivery failed")
	}
}

func outcomeLabel(s domain.SwapStatus) string {
	switch s {
	case domain.StatusCompleted:
		return "completed"
	case domain.StatusTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}
