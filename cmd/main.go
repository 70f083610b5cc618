package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
	"github.com/xhad/stocknews/pkg/advisor"
	cfgPkg "github.com/xhad/stocknews/pkg/config"
	"github.com/xhad/stocknews/pkg/ledger"
	"github.com/xhad/stocknews/pkg/llm"
	"github.com/xhad/stocknews/pkg/mailer"
	"github.com/xhad/stocknews/pkg/news"
	"github.com/xhad/stocknews/pkg/portfolio"
	"github.com/xhad/stocknews/pkg/prices"
	"github.com/xhad/stocknews/pkg/processor"
	"github.com/xhad/stocknews/pkg/scrape"
	"github.com/xhad/stocknews/pkg/search"
	"github.com/xhad/stocknews/pkg/store"
	"github.com/xhad/stocknews/pkg/workflow"
	"github.com/xhad/stocknews/server"
)

type Flags struct {
	ConfigPath      string
	Serve           bool
	SeedUser        string
	RefreshPrices   bool
	AdviseUser      string
	SendToAll       bool
	IndividualEmail string
	StaticBrowser   bool
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		stdlog.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP server with the cron schedule")
	flag.StringVar(&flags.SeedUser, "seed", "", "Seed demo portfolios for the given user id")
	flag.BoolVar(&flags.RefreshPrices, "refresh-prices", false, "Refresh current prices on open demo trades")
	flag.StringVar(&flags.AdviseUser, "advise", "", "Print portfolio advice for the given user id")
	flag.BoolVar(&flags.SendToAll, "send-all", false, "Send the summary to every subscriber")
	flag.StringVar(&flags.IndividualEmail, "email", "", "Send the summary to a single address")
	flag.BoolVar(&flags.StaticBrowser, "static", false, "Use the static HTTP scraper instead of headless Chrome")
	flag.Parse()

	return flags
}

func run(flags Flags) error {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	switch {
	case flags.SeedUser != "":
		return seedPortfolios(cfg, flags.SeedUser)
	case flags.RefreshPrices:
		return refreshPrices(cfg)
	case flags.AdviseUser != "":
		return printAdvice(cfg, flags.AdviseUser)
	case flags.Serve:
		return serve(cfg, flags)
	default:
		return runOnce(cfg, flags)
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func openPool(cfg *cfgPkg.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return pool, nil
}

func newPriceCache(cfg *cfgPkg.Config) *prices.Cache {
	var source types.QuoteSource
	if cfg.Prices.APIKey != "" {
		opts := []prices.ClientOption{}
		if cfg.Prices.BaseURL != "" {
			opts = append(opts, prices.WithBaseURL(cfg.Prices.BaseURL))
		}
		client, err := prices.NewAlphaVantageClient(cfg.Prices.APIKey, opts...)
		if err == nil {
			source = client
		}
	}
	return prices.NewCache(prices.CacheConfig{Source: source})
}

func seedPortfolios(cfg *cfgPkg.Config, userID string) error {
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	seeder := portfolio.NewSeeder(portfolio.SeederConfig{
		Pool:   pool,
		Prices: newPriceCache(cfg),
	})
	if err := seeder.EnsureSchema(context.Background()); err != nil {
		return err
	}
	if err := seeder.Seed(context.Background(), userID); err != nil {
		return err
	}

	color.Green("Portfolios ready for %s", userID)
	return nil
}

func refreshPrices(cfg *cfgPkg.Config) error {
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	seeder := portfolio.NewSeeder(portfolio.SeederConfig{
		Pool:   pool,
		Prices: newPriceCache(cfg),
	})
	return seeder.RefreshPrices(context.Background())
}

func printAdvice(cfg *cfgPkg.Config, userID string) error {
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	seeder := portfolio.NewSeeder(portfolio.SeederConfig{
		Pool:   pool,
		Prices: newPriceCache(cfg),
	})

	holdings, cash, goal, err := seeder.Holdings(context.Background(), userID)
	if err != nil {
		return err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	completer, err := llm.NewCompleterWithConfig(llm.CompleterConfig{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize completer: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	searcher := search.NewSearcher(search.SearcherConfig{
		Embedder: embedder,
		Index:    vectorStore,
		Weights: search.Weights{
			Semantic: cfg.Rerank.SemanticWeight,
			Vector:   cfg.Rerank.VectorWeight,
			Position: cfg.Rerank.PositionWeight,
		},
	})

	adv := advisor.NewAdvisor(advisor.AdvisorConfig{
		Retriever:   searcher,
		Completer:   completer,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	spinner := getSpinner("Generating advice...")
	advice, err := adv.Advise(context.Background(), holdings, cash, goal)
	spinner.Finish()
	if err != nil {
		return err
	}

	color.Blue("\nPortfolio advice for %s:\n", userID)
	fmt.Println(advice.Recommendations)
	color.Yellow("\n%s\n", advice.Explanation)
	return nil
}

func buildWorkflow(cfg *cfgPkg.Config, flags Flags) (*workflow.Workflow, *ledger.Store, func(), error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	completer, err := llm.NewCompleterWithConfig(llm.CompleterConfig{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize completer: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize vector store: %v", err)
	}

	pool, err := openPool(cfg)
	if err != nil {
		vectorStore.Close()
		return nil, nil, nil, err
	}

	ledgerStore := ledger.NewWithPool(pool)
	if err := ledgerStore.EnsureSchema(context.Background()); err != nil {
		vectorStore.Close()
		pool.Close()
		return nil, nil, nil, err
	}

	subscribers := ledger.NewSubscribers(pool, cfg.Mailer.AdminEmail)
	if err := subscribers.EnsureSchema(context.Background()); err != nil {
		vectorStore.Close()
		pool.Close()
		return nil, nil, nil, err
	}

	yahooOpts := []news.YahooOption{}
	if cfg.News.BaseURL != "" {
		yahooOpts = append(yahooOpts, news.WithBaseURL(cfg.News.BaseURL))
	}
	fetcher := news.NewFetcher(news.FetcherConfig{
		Source:          news.NewYahooClient(yahooOpts...),
		RequestInterval: time.Duration(cfg.News.RequestIntervalMs) * time.Millisecond,
	})

	var browser types.Browser
	if flags.StaticBrowser {
		browser = scrape.NewStaticBrowser(nil)
	} else {
		browser = scrape.NewChromeBrowser(scrape.ChromeBrowserConfig{
			Headless: cfg.Scraper.Headless,
		})
	}

	extractor := scrape.NewExtractor(scrape.ExtractorConfig{
		Browser:           browser,
		NavigationTimeout: time.Duration(cfg.Scraper.NavigationTimeoutSec) * time.Second,
		SelectorTimeout:   time.Duration(cfg.Scraper.SelectorTimeoutSec) * time.Second,
		ParagraphSelector: cfg.Scraper.ParagraphSelector,
	})

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	adv := advisor.NewAdvisor(advisor.AdvisorConfig{
		Retriever: search.NewSearcher(search.SearcherConfig{
			Embedder: embedder,
			Index:    vectorStore,
			Weights: search.Weights{
				Semantic: cfg.Rerank.SemanticWeight,
				Vector:   cfg.Rerank.VectorWeight,
				Position: cfg.Rerank.PositionWeight,
			},
		}),
		Completer:   completer,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	mailerOpts := []mailer.ResendOption{}
	if cfg.Mailer.BaseURL != "" {
		mailerOpts = append(mailerOpts, mailer.WithBaseURL(cfg.Mailer.BaseURL))
	}
	sender, err := mailer.NewResendClient(cfg.Mailer.APIKey, cfg.Mailer.From, mailerOpts...)
	if err != nil {
		vectorStore.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize mailer: %v", err)
	}

	fanout := mailer.NewFanout(mailer.FanoutConfig{
		Sender:        sender,
		BatchSize:     cfg.Mailer.BatchSize,
		BatchInterval: time.Duration(cfg.Mailer.BatchIntervalMs) * time.Millisecond,
	})

	wf := workflow.New(workflow.Config{
		Fetcher:     fetcher,
		Extractor:   extractor,
		Chunker:     &chunker,
		Embedder:    embedder,
		Index:       vectorStore,
		Summarizer:  adv,
		Sender:      fanout,
		Ledger:      ledgerStore,
		Subscribers: subscribers,
		Symbols:     cfg.News.Symbols,
		VectorDim:   cfg.Database.VectorDim,
	})

	cleanup := func() {
		vectorStore.Close()
		pool.Close()
	}
	return wf, ledgerStore, cleanup, nil
}

func runOnce(cfg *cfgPkg.Config, flags Flags) error {
	wf, _, cleanup, err := buildWorkflow(cfg, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	color.Blue("\nStarting daily news pipeline for %v\n", cfg.News.Symbols)
	spinner := getSpinner("Running pipeline...")

	result := wf.Run(context.Background(), models.WorkflowOptions{
		SendToAll:        flags.SendToAll,
		IndividualEmail:  flags.IndividualEmail,
		MaxNewsPerSymbol: cfg.News.MaxPerSymbol,
	})
	spinner.Finish()

	if !result.Success {
		if result.Error != "" {
			color.Red("\n%s", result.Error)
		}
		return fmt.Errorf("workflow failed: %s", result.Message)
	}

	color.Green("\n%s", result.Message)
	if result.Details != nil && result.Details.FailureCount > 0 {
		for _, e := range result.Details.Errors {
			color.Yellow("  %s", e)
		}
	}
	return nil
}

func serve(cfg *cfgPkg.Config, flags Flags) error {
	wf, ledgerStore, cleanup, err := buildWorkflow(cfg, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %v", cfg.Server.Port, err)
	}

	srv := server.New(server.Config{
		Runner:       wf,
		Executions:   ledgerStore,
		Port:         port,
		CronSchedule: cfg.Server.CronSchedule,
	})
	defer srv.Stop()

	return srv.Start()
}
