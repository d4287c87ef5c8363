package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
)

// Handler processes the payload of one task. Errors wrapping asynq.SkipRetry are not retried.
type Handler func(ctx context.Context, payload []byte) error

// Client enqueues deferred tasks backed by Redis
type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewClient creates a new Client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:   asynq.NewClient(redisOpt(cfg)),
		queue:    cfg.Queue.Name,
		maxRetry: cfg.Queue.MaxRetry,
	}
}

// Enqueue schedules a task for processAt. A zero processAt runs it as soon as possible.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload []byte, processAt time.Time) (string, error) {
	if taskType == "" {
		return "", errors.New("queue: task type is required")
	}
	opts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(c.maxRetry)}
	if !processAt.IsZero() {
		opts = append(opts, asynq.ProcessAt(processAt))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, payload), opts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Close closes the client
func (c *Client) Close() error {
	return c.client.Close()
}

// Server runs task handlers
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer creates a new Server consuming the configured queue
func NewServer(cfg *config.Config) *Server {
	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues:      map[string]int{cfg.Queue.Name: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.CtxWarn(ctx, "task failed: type=%s, error=%v", task.Type(), err)
		}),
	})
	return &Server{server: srv, mux: asynq.NewServeMux()}
}

// Register routes taskType to h
func (s *Server) Register(taskType string, h Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, t.Payload())
	})
}

// Start starts processing tasks in the background
func (s *Server) Start() error {
	return s.server.Start(s.mux)
}

// Shutdown waits for running handlers and stops the server
func (s *Server) Shutdown() {
	s.server.Shutdown()
}
