package scheduler

import (
	"context"
	"fmt"

	"imobzap_backend/platform/config"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Nudger executes a follow-up when the conversation is still idle. The
// orchestrator implements it.
type Nudger interface {
	SendFollowUpNudge(ctx context.Context, conversationID uuid.UUID, scheduledAfterUnix int64) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	nudger Nudger
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, nudger Nudger, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		nudger: nudger,
		log:    log,
	}

	mux.HandleFunc(TaskFollowUpNudge, w.handleFollowUpNudge)

	return w, nil
}

func (w *Worker) handleFollowUpNudge(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpNudgePayload(task)
	if err != nil {
		return err
	}

	conversationID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		return err
	}

	return w.nudger.SendFollowUpNudge(ctx, conversationID, payload.ScheduledAfter)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
