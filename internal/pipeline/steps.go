package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/pagehunter/internal/config"
	"github.com/nao1215/pagehunter/internal/crawler"
	"github.com/nao1215/pagehunter/internal/linkindex"
	"github.com/nao1215/pagehunter/internal/model"
	"github.com/nao1215/pagehunter/internal/rank"
)

// PageStore stores crawled pages. *database.CrawlDB implements it.
type PageStore interface {
	SavePage(ctx context.Context, page *model.Page) error
}

// RunStore stores finished rank runs. *database.CrawlDB implements it.
type RunStore interface {
	SaveRankRun(ctx context.Context, run *model.Run) error
}

// GraphLoader rebuilds a link index from stored pages.
// *database.CrawlDB implements it.
type GraphLoader interface {
	LoadGraph(ctx context.Context) (*linkindex.Index, error)
}

// CrawlStep crawls from the run's seeds into the run's link graph.
//
// Design decision: Pages are handed to the page store while the crawl is
// running, so crawl data survives a ranking that fails to converge.
type CrawlStep struct {
	// fetcher fetches and parses pages.
	fetcher crawler.PageFetcher

	// store receives every indexed page. nil disables page storage.
	store PageStore

	// spiderOpts are passed to every spider created by Do.
	spiderOpts []crawler.SpiderOption

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlSpiderOptions appends options for the spider.
func WithCrawlSpiderOptions(opts ...crawler.SpiderOption) CrawlStepOption {
	return func(s *CrawlStep) {
		s.spiderOpts = append(s.spiderOpts, opts...)
	}
}

// WithCrawlPageStore stores every indexed page in store.
func WithCrawlPageStore(store PageStore) CrawlStepOption {
	return func(s *CrawlStep) {
		s.store = store
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(fetcher crawler.PageFetcher, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		fetcher: fetcher,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	if run.Graph == nil {
		run.Graph = linkindex.New()
	}

	opts := make([]crawler.SpiderOption, 0, len(s.spiderOpts)+2)
	opts = append(opts, crawler.WithSpiderLogger(s.logger))
	opts = append(opts, s.spiderOpts...)
	if s.store != nil {
		opts = append(opts, crawler.WithPageHandler(s.store.SavePage))
	}

	spider := crawler.NewSpider(s.fetcher, run.Graph, opts...)
	stats, err := spider.Crawl(ctx, run.Seeds...)

	run.Dispatched = stats.Dispatched
	run.Indexed = stats.Indexed
	run.Failed = stats.Failed
	run.Duplicates = stats.Duplicates
	run.Disallowed = stats.Disallowed

	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	s.logger.Info("crawl completed",
		"indexed", stats.Indexed,
		"dispatched", stats.Dispatched,
	)
	return nil
}

// LoadGraphStep replaces the run's link graph with the stored one.
type LoadGraphStep struct {
	loader GraphLoader
	logger *slog.Logger
}

// NewLoadGraphStep creates a step that loads the link graph from loader.
func NewLoadGraphStep(loader GraphLoader, logger *slog.Logger) *LoadGraphStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadGraphStep{loader: loader, logger: logger}
}

// Name returns the step name.
func (s *LoadGraphStep) Name() string {
	return "load_graph"
}

// Do executes the load step.
func (s *LoadGraphStep) Do(ctx context.Context, run *model.Run) error {
	idx, err := s.loader.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("failed to load link graph: %w", err)
	}
	run.Graph = idx
	run.Indexed = idx.Len()
	s.logger.Info("link graph loaded", "pages", idx.Len())
	return nil
}

// RankStep finalizes the run's link graph and ranks its pages.
//
// A ranking that hits the iteration cap is not stored: the step records
// the iteration count and delta in the run and returns the
// *rank.ConvergenceError.
type RankStep struct {
	engine  *rank.Engine
	alpha   float64
	epsilon float64
	logger  *slog.Logger
}

// RankStepOption configures a RankStep.
type RankStepOption func(*RankStep)

// WithRankAlpha sets the damping factor.
func WithRankAlpha(alpha float64) RankStepOption {
	return func(s *RankStep) {
		s.alpha = alpha
	}
}

// WithRankEpsilon sets the convergence threshold.
func WithRankEpsilon(epsilon float64) RankStepOption {
	return func(s *RankStep) {
		s.epsilon = epsilon
	}
}

// WithRankEngine sets the power-iteration engine.
func WithRankEngine(engine *rank.Engine) RankStepOption {
	return func(s *RankStep) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithRankLogger sets a custom logger for the rank step.
func WithRankLogger(logger *slog.Logger) RankStepOption {
	return func(s *RankStep) {
		s.logger = logger
	}
}

// NewRankStep creates a new ranking step.
func NewRankStep(opts ...RankStepOption) *RankStep {
	s := &RankStep{
		alpha:   config.DefaultAlpha,
		epsilon: config.DefaultEpsilon,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.engine == nil {
		s.engine = rank.NewEngine(rank.WithLogger(s.logger))
	}
	return s
}

// Name returns the step name.
func (s *RankStep) Name() string {
	return "rank"
}

// Do executes the rank step.
func (s *RankStep) Do(ctx context.Context, run *model.Run) error {
	if run.Graph == nil {
		return errors.New("run has no link graph")
	}
	if !run.Graph.Finalized() {
		if err := run.Graph.Finalize(); err != nil {
			return err
		}
	}

	run.Alpha = s.alpha
	run.Epsilon = s.epsilon

	m, err := rank.Build(run.Graph)
	if err != nil {
		return err
	}

	res, err := s.engine.Iterate(ctx, m, s.alpha, s.epsilon)
	if res != nil {
		run.Iterations = res.Iterations
		run.Delta = res.Delta
		run.Converged = res.Converged
	}
	if err != nil {
		return err
	}

	pages, err := rank.RankedResult(run.Graph, res.Vector)
	if err != nil {
		return err
	}
	rank.ApplyDisplay(pages, s.epsilon)

	run.Rankings = pages
	run.Pages = len(pages)
	run.FinishedAt = time.Now()

	s.logger.Info("ranking completed",
		"pages", run.Pages,
		"iterations", run.Iterations,
		"delta", run.Delta,
	)
	return nil
}

// PersistStep stores the finished run.
type PersistStep struct {
	store  RunStore
	logger *slog.Logger
}

// NewPersistStep creates a step that saves runs to store.
func NewPersistStep(store RunStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step.
func (s *PersistStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.store.SaveRankRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save rank run: %w", err)
	}
	s.logger.Debug("rank run saved", "run", run.ID)
	return nil
}

// Store is everything the assembled pipelines persist to.
// *database.CrawlDB implements it.
type Store interface {
	PageStore
	RunStore
	GraphLoader
}

// DefaultPipelineConfig holds configuration for the assembled pipelines.
type DefaultPipelineConfig struct {
	// SpiderOptions configure the crawl: budget, concurrency, depth,
	// patterns, robots agent and limiter.
	SpiderOptions []crawler.SpiderOption

	// Alpha is the damping factor.
	Alpha float64

	// Epsilon is the convergence threshold.
	Epsilon float64

	// MaxIterations caps power iteration.
	MaxIterations int

	// Workers is the number of goroutines per iteration step. 0 uses GOMAXPROCS.
	Workers int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineSpiderOptions appends spider options.
func WithPipelineSpiderOptions(opts ...crawler.SpiderOption) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SpiderOptions = append(c.SpiderOptions, opts...)
	}
}

// WithPipelineAlpha sets the damping factor.
func WithPipelineAlpha(alpha float64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Alpha = alpha
	}
}

// WithPipelineEpsilon sets the convergence threshold.
func WithPipelineEpsilon(epsilon float64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Epsilon = epsilon
	}
}

// WithPipelineMaxIterations sets the iteration cap.
func WithPipelineMaxIterations(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxIterations = n
	}
}

// WithPipelineWorkers sets the number of iteration workers.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

func newPipelineConfig(opts []DefaultPipelineOption) *DefaultPipelineConfig {
	cfg := &DefaultPipelineConfig{
		Alpha:         config.DefaultAlpha,
		Epsilon:       config.DefaultEpsilon,
		MaxIterations: config.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *DefaultPipelineConfig) rankStep(logger *slog.Logger) *RankStep {
	engineOpts := []rank.Option{
		rank.WithMaxIterations(c.MaxIterations),
		rank.WithLogger(logger),
	}
	if c.Workers > 0 {
		engineOpts = append(engineOpts, rank.WithWorkers(c.Workers))
	}
	return NewRankStep(
		WithRankAlpha(c.Alpha),
		WithRankEpsilon(c.Epsilon),
		WithRankEngine(rank.NewEngine(engineOpts...)),
		WithRankLogger(logger),
	)
}

// DefaultPipeline creates the crawl, rank and persist pipeline.
// When store is nil nothing is persisted.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineAlpha, etc).
func DefaultPipeline(fetcher crawler.PageFetcher, store Store, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)
	cfg := newPipelineConfig(configOpts)

	crawlOpts := []CrawlStepOption{
		WithCrawlSpiderOptions(cfg.SpiderOptions...),
		WithCrawlLogger(p.logger),
	}
	if store != nil {
		crawlOpts = append(crawlOpts, WithCrawlPageStore(store))
	}

	p.AddSteps(
		NewCrawlStep(fetcher, crawlOpts...),
		cfg.rankStep(p.logger),
	)
	if store != nil {
		p.AddStep(NewPersistStep(store, p.logger))
	}
	return p
}

// RerankPipeline creates the load, rank and persist pipeline, which ranks
// the stored link graph again without crawling.
func RerankPipeline(store Store, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)
	cfg := newPipelineConfig(configOpts)

	p.AddSteps(
		NewLoadGraphStep(store, p.logger),
		cfg.rankStep(p.logger),
		NewPersistStep(store, p.logger),
	)
	return p
}
