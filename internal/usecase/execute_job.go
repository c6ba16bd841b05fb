package usecase

import (
	"context"
	"fmt"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/internal/executor"
	"WhaleTrail/internal/strategy"
	"WhaleTrail/pkg/logger"
	"WhaleTrail/pkg/queue"
)

// ExecuteSignalJob drains the execution queue: each accepted signal is
// driven through the executor, and a failed order releases its reserved
// risk slot so the engine can take the next movement.
type ExecuteSignalJob struct {
	exec     *executor.Executor
	engine   *strategy.Engine
	notifier repository.Notifier
	log      *logger.Logger
}

func NewExecuteSignalJob(log *logger.Logger, exec *executor.Executor, engine *strategy.Engine, notifier repository.Notifier) *ExecuteSignalJob {
	return &ExecuteSignalJob{
		exec:     exec,
		engine:   engine,
		notifier: notifier,
		log:      log,
	}
}

func (j *ExecuteSignalJob) Name() string { return "execute-signal" }
func (j *ExecuteSignalJob) Type() string { return ExecuteSignalType }

func (j *ExecuteSignalJob) Handle(ctx context.Context, payload interface{}) error {
	sig, err := queue.ParsePayload[models.TradeSignal](payload)
	if err != nil {
		return fmt.Errorf("execute signal: %w", err)
	}

	res, execErr := j.exec.Execute(ctx, sig)
	if res != nil && j.notifier != nil {
		if nerr := j.notifier.OrderCompleted(ctx, res); nerr != nil {
			j.log.Warn("order notification failed", logger.Error(nerr))
		}
	}
	if execErr == nil {
		return nil
	}

	// The executor already spent its retry budget on transient failures;
	// whatever comes back here is final, so the slot is released.
	if _, cerr := j.engine.CloseTrade(sig.Token, sig.EntryPrice); cerr != nil {
		j.log.Error("failed order slot release failed",
			logger.String("token", sig.Token),
			logger.Error(cerr))
	}
	j.log.Warn("order failed permanently",
		logger.String("token", sig.Token),
		logger.String("kind", string(executor.KindOf(execErr))),
		logger.Error(execErr))
	return nil
}
