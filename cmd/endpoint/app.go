package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/bootstrap"
	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/dispatch"
	"github.com/kbukum/endpoints/embedding"
	"github.com/kbukum/endpoints/embedding/tei"
	"github.com/kbukum/endpoints/envelope"
	"github.com/kbukum/endpoints/httpclient"
	"github.com/kbukum/endpoints/huggingface"
	"github.com/kbukum/endpoints/kafka"
	"github.com/kbukum/endpoints/kafka/producer"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/metering"
	"github.com/kbukum/endpoints/observability"
	"github.com/kbukum/endpoints/openai"
	"github.com/kbukum/endpoints/provider"
	"github.com/kbukum/endpoints/redis"
	"github.com/kbukum/endpoints/resilience"
	"github.com/kbukum/endpoints/router"
	"github.com/kbukum/endpoints/server"
	"github.com/kbukum/endpoints/server/middleware"
	"github.com/kbukum/endpoints/transcription"
	"github.com/kbukum/endpoints/transcription/whisper"
	"github.com/kbukum/endpoints/util"
)

const (
	taskEmbeddings    = "embeddings"
	taskTranscription = "transcription"
)

// App is the assembled endpoint service.
type App = bootstrap.App[*EndpointConfig]

// wiring holds what the task pipelines share while the app is assembled.
type wiring struct {
	app     *App
	cfg     *EndpointConfig
	log     *logger.Logger
	metrics *observability.Metrics
	sink    metering.Sink
	drain   *usageDrain
	cache   *redis.Client
	stats   map[string]func() any
}

// newApp registers every component in start order: telemetry, usage
// sinks, cache, backends, dispatch loops and finally the HTTP server.
// Components stop in reverse, so the server stops taking requests before
// the loops drain and usage events are flushed last.
func newApp(cfg *EndpointConfig, opts ...bootstrap.Option) (*App, *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	w := &wiring{app: app, cfg: cfg, log: app.Logger, stats: map[string]func() any{}}

	if err := app.RegisterComponent(observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)); err != nil {
		return nil, nil, err
	}
	if w.metrics, err = observability.NewMetrics(observability.Meter(cfg.Name)); err != nil {
		return nil, nil, err
	}
	if err := w.buildUsageSink(); err != nil {
		return nil, nil, fmt.Errorf("usage sink: %w", err)
	}
	if err := w.buildCache(); err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: %w", err)
	}
	srv := server.New(cfg.Server, app.Logger)
	srv.Use(middleware.Telemetry(w.metrics))
	srv.ApplyMiddleware(verifier, cfg.Auth.SkipPaths...)

	routerOpts := []router.Option{
		router.WithTimeout(cfg.Server.RequestTimeout),
		router.WithMetrics(w.metrics),
		router.WithLogger(app.Logger),
	}
	var (
		oaEmbeddings    *openai.EmbeddingsRouter
		oaTranscription *openai.TranscriptionRouter
		hfEmbeddings    *huggingface.EmbeddingsRouter
		hfASR           *huggingface.ASRRouter
	)
	if cfg.Embeddings.Enabled {
		endpoint, err := w.embeddingsEndpoint()
		if err != nil {
			return nil, nil, fmt.Errorf("embeddings: %w", err)
		}
		oaEmbeddings = openai.NewEmbeddingsRouter(endpoint, routerOpts...)
		hfEmbeddings = huggingface.NewEmbeddingsRouter(endpoint, routerOpts...)
	}
	if cfg.Transcription.Enabled {
		endpoint, err := w.transcriptionEndpoint()
		if err != nil {
			return nil, nil, fmt.Errorf("transcription: %w", err)
		}
		oaTranscription = openai.NewTranscriptionRouter(endpoint, routerOpts...)
		hfASR = huggingface.NewASRRouter(endpoint, routerOpts...)
	}

	engine := srv.GinEngine()
	openai.NewHandlers(oaEmbeddings, oaTranscription).Register(engine)
	huggingface.NewHandlers(hfEmbeddings, hfASR).Register(engine)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll, cfg.Tasks(), w.dispatchStats)

	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, nil, err
	}
	app.Summary.TrackInfrastructure("auth", "auth", cfg.Auth.Describe(), 0)
	return app, srv, nil
}

// buildUsageSink publishes usage to Kafka when configured and to the log
// otherwise. Token counters are always recorded.
func (w *wiring) buildUsageSink() error {
	var sink metering.Sink = metering.NewLogSink(w.log)
	if w.cfg.Kafka.Enabled {
		p, err := producer.NewProducer(w.cfg.Kafka, w.log)
		if err != nil {
			return err
		}
		if err := w.app.RegisterComponent(kafka.NewComponent(w.cfg.Kafka, p, w.log)); err != nil {
			return err
		}
		sink = provider.WithSinkResilience[metering.Event](
			producer.NewUsageSink(p, w.cfg.Kafka.Topic),
			provider.ResilienceConfig{
				CircuitBreaker: util.Ptr(resilience.DefaultCircuitBreakerConfig("kafka.usage")),
			},
		)
	}
	w.sink = metering.Tee(metering.NewMetricsSink(w.metrics), sink)
	w.drain = &usageDrain{}
	return w.app.RegisterComponent(w.drain)
}

func (w *wiring) buildCache() error {
	if !w.cfg.Redis.Enabled {
		return nil
	}
	comp, err := redis.NewComponent(w.cfg.Redis, w.log)
	if err != nil {
		return err
	}
	w.cache = comp.Client()
	return w.app.RegisterComponent(comp)
}

func (w *wiring) meteringOptions(model string) []metering.Option {
	return []metering.Option{
		metering.WithModel(model),
		metering.WithLogger(w.log),
		metering.WithWaitGroup(&w.drain.wg),
		metering.WithSendTimeout(w.sendTimeout()),
	}
}

// sendTimeout bounds one usage publish including producer retries.
func (w *wiring) sendTimeout() time.Duration {
	if !w.cfg.Kafka.Enabled {
		return metering.DefaultSendTimeout
	}
	return w.cfg.Kafka.WriteTimeout * time.Duration(max(w.cfg.Kafka.Retries, 1))
}

func (w *wiring) embeddingsEndpoint() (dispatch.EndpointContext[embedding.Request, embedding.Response], error) {
	c := w.cfg.Embeddings
	registry := provider.NewRegistry[embedding.Handler]()
	registry.RegisterFactory(tei.ProviderName, tei.Factory())
	names := backendNames(tei.ProviderName, len(c.Backends))
	manager := provider.NewManager(registry, selector[embedding.Handler](c.Selector, names))

	for i, bc := range c.Backends {
		var backend *tei.Provider
		hc := bc.HTTPConfig()
		hc.Name = names[i]
		comp, err := httpclient.NewComponent(hc, func(ctx context.Context) bool { return backend.Probe(ctx) })
		if err != nil {
			return dispatch.EndpointContext[embedding.Request, embedding.Response]{}, err
		}
		backend = tei.NewProviderWithAdapter(bc, comp.Adapter())
		if err := w.app.RegisterComponent(comp); err != nil {
			return dispatch.EndpointContext[embedding.Request, embedding.Response]{}, err
		}
		manager.Add(names[i], backend)
	}

	type (
		req  = embedding.Request
		resp = embedding.Response
	)
	mws := []provider.Middleware[req, resp]{
		provider.WithTracing[req, resp](w.cfg.Name),
		provider.WithMetrics[req, resp](w.metrics),
		provider.WithLogging[req, resp](w.log.WithComponent(taskEmbeddings)),
		metering.WithUsageReporting[req, resp](w.sink, taskEmbeddings, responseUsage[envelope.MaybeBatched[embedding.Vector]], w.meteringOptions(c.Model)...),
		embedding.WithBatchMetrics(taskEmbeddings, w.metrics),
	}
	if w.cache != nil {
		store := redis.NewResponseCache[resp](w.cache, w.cfg.Redis.KeyPrefix)
		mws = append(mws, provider.WithCache[req, resp](store, embedding.CacheKey(c.Model), w.cfg.Redis.TTL))
	}
	mws = append(mws, embedding.WithArityCheck())
	handler := provider.Chain(mws...)(provider.Routed(taskEmbeddings, manager))

	return startLoop(w, taskEmbeddings, handler)
}

func (w *wiring) transcriptionEndpoint() (dispatch.EndpointContext[transcription.Request, transcription.Response], error) {
	c := w.cfg.Transcription
	registry := transcription.NewRegistry()
	registry.RegisterFactory(whisper.ProviderName, whisper.Factory())
	names := backendNames(whisper.ProviderName, len(c.Backends))
	manager := transcription.NewManager(registry, transcription.WithSelector(selector[transcription.Handler](c.Selector, names)))

	for i, bc := range c.Backends {
		var backend *whisper.Provider
		hc := bc.HTTPConfig()
		hc.Name = names[i]
		comp, err := httpclient.NewComponent(hc, func(ctx context.Context) bool { return backend.Probe(ctx) })
		if err != nil {
			return dispatch.EndpointContext[transcription.Request, transcription.Response]{}, err
		}
		backend = whisper.NewProviderWithAdapter(bc, comp.Adapter())
		if err := w.app.RegisterComponent(comp); err != nil {
			return dispatch.EndpointContext[transcription.Request, transcription.Response]{}, err
		}
		manager.Add(names[i], backend)
	}

	var handler transcription.Handler = provider.Routed(taskTranscription, manager)
	if c.MaxConcurrent > 0 {
		handler = provider.WithResilience(handler, provider.ResilienceConfig{
			Bulkhead: util.Ptr(resilience.BulkheadConfig{
				Name:          taskTranscription,
				MaxConcurrent: c.MaxConcurrent,
				MaxWait:       w.cfg.Server.RequestTimeout,
			}),
		})
	}

	type (
		req  = transcription.Request
		resp = transcription.Response
	)
	handler = provider.Chain(
		provider.WithTracing[req, resp](w.cfg.Name),
		provider.WithMetrics[req, resp](w.metrics),
		provider.WithLogging[req, resp](w.log.WithComponent(taskTranscription)),
		metering.WithUsageReporting[req, resp](w.sink, taskTranscription, responseUsage[transcription.Result], w.meteringOptions(c.Model)...),
	)(handler)

	return startLoop(w, taskTranscription, handler)
}

// startLoop creates the task's queue and loop and registers the loop.
func startLoop[I, O any](w *wiring, task string, handler provider.RequestResponse[I, O]) (dispatch.EndpointContext[I, O], error) {
	loop, err := dispatch.NewLoop(task, dispatch.NewQueue[I, O](), handler, w.cfg.Dispatch,
		dispatch.WithLogger(w.log),
		dispatch.WithMeter(observability.Meter(w.cfg.Name)),
	)
	if err != nil {
		return dispatch.EndpointContext[I, O]{}, err
	}
	if err := w.app.RegisterComponent(loop); err != nil {
		return dispatch.EndpointContext[I, O]{}, err
	}
	w.stats[task] = func() any {
		return map[string]any{"load": loop.Stats(), "totals": loop.Counts()}
	}
	return loop.Endpoint(), nil
}

func (w *wiring) dispatchStats() map[string]any {
	out := make(map[string]any, len(w.stats))
	for task, fn := range w.stats {
		out[task] = fn()
	}
	return out
}

func responseUsage[O any](r envelope.EndpointResponse[O, envelope.Usage]) *envelope.Usage {
	return r.Usage
}

// backendNames returns kind for a single backend and kind-0, kind-1, ...
// for replicas.
func backendNames(kind string, n int) []string {
	if n == 1 {
		return []string{kind}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", kind, i)
	}
	return names
}

func selector[T provider.Provider](policy string, names []string) provider.Selector[T] {
	if policy == SelectRoundRobin {
		return &provider.RoundRobinSelector[T]{}
	}
	return &provider.PrioritySelector[T]{Priority: names}
}

// usageDrain waits for in-flight usage events on shutdown. It stops after
// the dispatch loops and before the Kafka producer closes.
type usageDrain struct {
	wg sync.WaitGroup
}

var _ component.Component = (*usageDrain)(nil)

func (d *usageDrain) Name() string                { return "usage" }
func (d *usageDrain) Start(context.Context) error { return nil }
func (d *usageDrain) Health(context.Context) component.Health {
	return component.Health{Name: d.Name(), Status: component.StatusHealthy}
}

func (d *usageDrain) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("usage events still in flight: %w", ctx.Err())
	}
}
