package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/pagehunter/internal/config"
	"github.com/nao1215/pagehunter/internal/crawler"
	"github.com/nao1215/pagehunter/internal/model"
	"github.com/nao1215/pagehunter/internal/pipeline"
	"github.com/nao1215/pagehunter/internal/transport"
	"github.com/spf13/cobra"
)

// errOnionNeedsProxy is returned for onion start URLs without a Tor route.
var errOnionNeedsProxy = errors.New("onion start URLs need --tor or --proxy")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-url...]",
		Short: "Crawl from start URLs and rank the visited pages",
		Long: `Crawl visits pages breadth-first from the given start URLs, records the
links between them and ranks every visited page with PageRank.

Start URLs must be absolute http or https URLs. When none is given, the
PAGEHUNTER_BEGIN variable and then the "seeds" list of the configuration
file are used.

Examples:
  # Crawl up to 128 pages from a site and print the top 20
  pagehunter crawl https://example.com/

  # Stay on the start hosts and stop after 500 visits
  pagehunter crawl --same-host --max-pages 500 https://example.com/

  # Be gentle: one request per second per host
  pagehunter crawl --rate 1 https://example.com/

  # Crawl through an embedded Tor daemon and write a Markdown report
  pagehunter crawl --tor --markdown -o report.md http://<v3-address>.onion/

Configuration file (.pagehunter) example:
  seeds:
    - https://example.com/
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - /private/*`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of page visits")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of pages fetched at the same time")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from a start URL (0 means unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum delay between two requests to the same host")
	cmd.Flags().Float64("rate", config.DefaultRateLimit,
		"Maximum requests per second per host (0 disables the limit)")
	cmd.Flags().Bool("robots", true,
		"Respect robots.txt")
	cmd.Flags().Bool("same-host", false,
		"Only follow links to the hosts of the start URLs")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Ranking flags
	addRankFlags(cmd)

	// Transport flags
	cmd.Flags().String("proxy", "",
		"Crawl through the SOCKS5 proxy at host:port")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Storage flags
	cmd.Flags().Bool("no-db", false,
		"Do not store pages and rankings in the database")

	// Report flags
	addReportFlags(cmd)

	return cmd
}

// addRankFlags registers the ranking flags shared by crawl and rank.
func addRankFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("alpha", config.DefaultAlpha,
		"Damping factor, strictly between 0 and 1")
	cmd.Flags().Float64("epsilon", config.DefaultEpsilon,
		"Convergence threshold of the rank iteration")
	cmd.Flags().Int("max-iterations", config.DefaultMaxIterations,
		"Maximum number of rank iterations")
}

// readRankFlags copies the ranking flags into cfg.
func readRankFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.Alpha, err = cmd.Flags().GetFloat64("alpha"); err != nil {
		return err
	}
	if cfg.Epsilon, err = cmd.Flags().GetFloat64("epsilon"); err != nil {
		return err
	}
	if cfg.MaxIterations, err = cmd.Flags().GetInt("max-iterations"); err != nil {
		return err
	}
	return nil
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd, cfg, logger)
}

// buildCrawlConfig creates a Config from the environment and the flags.
// Flags only override the environment when they were set explicitly.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.MaxPages, err = intFlag(cmd, "max-pages", cfg.MaxPages); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("robots"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = stringFlag(cmd, "user-agent", cfg.UserAgent); err != nil {
		return nil, err
	}
	if err := readRankFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = stringFlag(cmd, "proxy", cfg.ProxyAddress); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if err := readReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	// Seeds: arguments, then environment, then configuration file.
	switch {
	case len(args) > 0:
		cfg.Seeds = args
	case len(cfg.Seeds) == 0 && cfg.SiteConfigs != nil:
		cfg.Seeds = cfg.SiteConfigs.Seeds
	}

	return cfg, nil
}

// intFlag returns the flag value if it was set and fallback otherwise.
func intFlag(cmd *cobra.Command, name string, fallback int) (int, error) {
	if !cmd.Flags().Changed(name) {
		return fallback, nil
	}
	return cmd.Flags().GetInt(name)
}

// stringFlag returns the flag value if it was set and fallback otherwise.
func stringFlag(cmd *cobra.Command, name, fallback string) (string, error) {
	if !cmd.Flags().Changed(name) {
		return fallback, nil
	}
	return cmd.Flags().GetString(name)
}

// runCrawl executes the crawl, rank and persist pipeline and writes the report.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	seeds := make([]string, len(cfg.Seeds))
	for i, s := range cfg.Seeds {
		normalized, err := crawler.NormalizeSeed(s)
		if err != nil {
			return fmt.Errorf("invalid start URL %q: %w", s, err)
		}
		seeds[i] = normalized
	}

	if err := checkOnionSeeds(seeds, cfg.UseTor || cfg.ProxyAddress != ""); err != nil {
		return err
	}

	siteConfig := siteConfigFor(cfg, seeds[0])
	if siteConfig.Depth > 0 && !cmd.Flags().Changed("depth") {
		cfg.CrawlDepth = siteConfig.Depth
	}

	logger.Info("starting crawl",
		"seeds", seeds,
		"maxPages", cfg.MaxPages,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	clientOpts := []transport.Option{}
	if siteConfig.Cookie != "" {
		clientOpts = append(clientOpts, transport.WithCookie(siteConfig.Cookie))
	}
	if len(siteConfig.Headers) > 0 {
		clientOpts = append(clientOpts, transport.WithHeaders(siteConfig.Headers))
	}

	switch {
	case cfg.UseTor:
		embedded, err := startEmbeddedTor(ctx, cmd, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		opt, err := embedded.ProxyOption()
		if err != nil {
			return err
		}
		clientOpts = append(clientOpts, opt)
	case cfg.ProxyAddress != "":
		clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
	}

	client, err := transport.NewClient(cfg.Timeout, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if client.ProxyAddress() != "" {
		if err := client.CheckProxy(ctx).Error(); err != nil {
			return fmt.Errorf("proxy check failed for %s: %w", client.ProxyAddress(), err)
		}
		logger.Info("proxy connection verified", "address", client.ProxyAddress())
	}
	httpClient := client.HTTPClient()

	fetcher := crawler.NewFetcher(httpClient,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithSameHost(cfg.SameHost),
		crawler.WithIgnorePatterns(siteConfig.IgnorePatterns),
		crawler.WithFollowPatterns(siteConfig.FollowPatterns),
		crawler.WithLimiter(crawler.NewDomainLimiter(cfg.CrawlDelay, cfg.RateLimit, config.DefaultRateBurst)),
	}
	if cfg.RespectRobots {
		// robots.txt goes through the same session and identity as the pages.
		spiderOpts = append(spiderOpts,
			crawler.WithRobots(crawler.NewRobotsAgent(fetcher.Client(), fetcher.UserAgent(), crawler.DefaultRobotsTTL)))
	}

	// A nil *CrawlDB must not become a non-nil Store.
	var store pipeline.Store
	if cfg.SaveToDB {
		db, err := openDatabase(ctx, cfg, true, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	p := pipeline.DefaultPipeline(fetcher, store,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPipelineSpiderOptions(spiderOpts...),
		pipeline.WithPipelineAlpha(cfg.Alpha),
		pipeline.WithPipelineEpsilon(cfg.Epsilon),
		pipeline.WithPipelineMaxIterations(cfg.MaxIterations),
	)

	run := model.NewRun(seeds)

	s := newSpinner(cmd, cfg)
	s.Suffix = fmt.Sprintf(" crawling %s ...", seeds[0])
	s.Start()
	execErr := p.Execute(ctx, run)
	s.Stop()

	if !cfg.JSONReport && cfg.ReportFile == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Crawl finished in %s\n",
			time.Since(run.StartedAt).Round(time.Millisecond))
	}

	if err := outputReport(cmd, cfg, run); err != nil {
		logger.Error("report failed", "run", run.ID, "error", err)
		if execErr == nil {
			return err
		}
	}

	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			return fmt.Errorf("crawl interrupted: %w", execErr)
		}
		return execErr
	}
	return nil
}

// checkOnionSeeds validates onion start URLs and makes sure they can be
// reached through a proxy.
func checkOnionSeeds(seeds []string, proxied bool) error {
	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil || !transport.IsOnionHost(u.Host) {
			continue
		}
		if err := transport.ValidateOnionHost(u.Host); err != nil {
			return fmt.Errorf("start URL %q: %w", s, err)
		}
		if !proxied {
			return fmt.Errorf("%w: %s", errOnionNeedsProxy, s)
		}
	}
	return nil
}

// siteConfigFor returns the site configuration of the host of rawURL.
func siteConfigFor(cfg *config.Config, rawURL string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(u.Host)
}

// newSpinner creates the progress spinner. It is disabled in verbose mode,
// where log lines would interleave with it, and for JSON reports.
func newSpinner(cmd *cobra.Command, cfg *config.Config) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	if cfg.Verbose || cfg.JSONReport {
		s.Disable()
	}
	return s
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*transport.EmbeddedTor, error) {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := transport.NewEmbeddedTor(
		transport.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
	fmt.Fprintf(out, "SOCKS proxy: %s\n\n", embedded.SocksAddr())
	return embedded, nil
}
