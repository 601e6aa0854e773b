package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/fareharbor"
	"fhtally/internal/log"
	"fhtally/internal/middleware/trace"
	"fhtally/internal/services"
)

// WebhookPath is where FareHarbor posts booking events.
const WebhookPath = "/fareharbor/webhook"

const processTimeout = 30 * time.Second

// Recorder applies decoded deliveries to the ledger.
type Recorder interface {
	Record(ctx context.Context, d fareharbor.Delivery) services.Outcome
	Reject(ctx context.Context, d fareharbor.Delivery, err error) services.Outcome
}

// Publisher hands deliveries to the worker queue.
type Publisher interface {
	PublishBooking(ctx context.Context, msg *amqp.BookingMessage) error
}

// ReadyFunc reports whether downstream dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

type Options struct {
	Logger       *log.Logger
	MaxBodyBytes int64
	// Publisher switches the handler to queue mode when non-nil.
	Publisher Publisher
	Ready     ReadyFunc
	// IndexStats, when set, is reported by /metrics.
	IndexStats func() services.IndexStats
}

type Server struct {
	http.Server
	ledger    Recorder
	publisher Publisher
	ready     ReadyFunc
	stats     func() services.IndexStats
	maxBody   int64
	logger    *log.Logger
	trace     *trace.Middleware
	started   time.Time

	// wg tracks deliveries still being written after the response was sent.
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewServer(addr string, ledger Recorder, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	s := &Server{
		ledger:    ledger,
		publisher: opts.Publisher,
		ready:     opts.Ready,
		stats:     opts.IndexStats,
		maxBody:   maxBody,
		logger:    logger.WithComponent(log.ComponentWebhook),
		trace:     trace.NewMiddleware(logger, extractClientIP),
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(WebhookPath, s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = securityHeaders(handler)
	handler = log.Middleware(logger, trace.RequestIDFromRequest)(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and waits for in-flight deliveries.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Shutdown deadline reached with deliveries in flight")
		}
	})
	return err
}
