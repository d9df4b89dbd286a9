package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cheonanurc/urcbot/ai"
	"github.com/cheonanurc/urcbot/ai/cache"
	"github.com/cheonanurc/urcbot/ai/core/embedding"
	"github.com/cheonanurc/urcbot/ai/core/llm"
	"github.com/cheonanurc/urcbot/ai/core/reranker"
	"github.com/cheonanurc/urcbot/ai/core/retrieval"
	"github.com/cheonanurc/urcbot/ai/faq"
	"github.com/cheonanurc/urcbot/ai/intent"
	"github.com/cheonanurc/urcbot/ai/metrics"
	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/router"
	"github.com/cheonanurc/urcbot/ai/session"
	"github.com/cheonanurc/urcbot/ai/websearch"
	"github.com/cheonanurc/urcbot/internal/profile"
	"github.com/cheonanurc/urcbot/internal/version"
	"github.com/cheonanurc/urcbot/server"
	"github.com/cheonanurc/urcbot/store"
	"github.com/cheonanurc/urcbot/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "urcbot",
	Short: "Answer bot for the Cheonan urban regeneration support center: FAQ, page navigation, hybrid retrieval and web fallback behind one chat endpoint.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Best effort; systemd deployments inject env directly.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid profile", "error", err)
			return
		}
		if instanceProfile.IsDev() {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
		answers, sessions, err := buildAnswerRouter(ctx, instanceProfile, storeInstance, exporter)
		if err != nil {
			slog.Error("failed to build answer pipeline", "error", err)
			return
		}

		cleanup := session.NewCleanupJob(sessions, session.CleanupConfig{})
		go cleanup.Start(ctx)

		s, err := server.NewServer(ctx, instanceProfile, answers, exporter)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			cancel()
		}
		<-ctx.Done()
	},
}

// buildAnswerRouter wires every collaborator of the answer chain from
// the profile. Generation and web search degrade to skipped stages when
// unconfigured; the rule and FAQ stages always come up.
func buildAnswerRouter(ctx context.Context, prof *profile.Profile, storeInstance *store.Store, exporter *metrics.PrometheusExporter) (*router.AnswerRouter, *session.Store, error) {
	cfg := ai.NewConfigFromProfile(prof)

	reg, err := registry.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load page catalog: %w", err)
	}
	faqIndex, err := faq.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load faq: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTTL)
	svc := router.Services{
		Registry: reg,
		FAQ:      faqIndex,
		Intents:  intent.NewResolver(reg, intent.DefaultConfig()),
		Cache:    cache.NewAnswerCache(1024, cfg.CacheTTL),
		Sessions: sessions,
		Programs: storeInstance,
		Metrics:  exporter,
	}

	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		slog.Warn("embedding service unavailable, dense retrieval disabled", "error", err)
	} else {
		rerankerService := reranker.NewService(&cfg.Reranker)
		retriever := retrieval.NewHybridRetriever(storeInstance, embedder, rerankerService, &cfg.Retrieval)
		docs, err := storeInstance.ListDocuments(ctx, &store.FindDocument{})
		if err != nil {
			slog.Warn("failed to load corpus, starting with an empty index", "error", err)
		} else {
			retriever.Rebuild(docs)
		}
		svc.Retriever = retriever
	}

	if prof.IsLLMEnabled() {
		llmService, err := llm.NewService(&cfg.LLM)
		if err != nil {
			slog.Warn("generation service unavailable, synthesis stages disabled",
				"provider", cfg.LLM.Provider,
				"error", err,
			)
		} else {
			slog.Info("generation service initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
			go func() {
				warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer warmupCancel()
				llmService.Warmup(warmupCtx)
			}()
			svc.Generator = llmService
		}
	}

	if cfg.WebSearchEnabled {
		svc.Web = websearch.NewService(&cfg.WebSearch)
	}

	routerCfg := router.DefaultConfig()
	routerCfg.LocalThreshold = float32(cfg.LocalThreshold)
	routerCfg.FuzzyScore = cfg.FuzzyScore
	routerCfg.FuzzyLimit = cfg.FuzzyLimit
	routerCfg.RetrieverK = cfg.RetrieverK
	routerCfg.RerankTopN = cfg.RerankTopN
	routerCfg.WebHits = cfg.WebSearchHits
	routerCfg.WebEnabled = cfg.WebSearchEnabled && svc.Web != nil

	return router.New(svc, routerCfg), sessions, nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("urcbot %s started\n", p.Version)
	fmt.Printf("mode: %s, driver: %s\n", p.Mode, p.Driver)
	fmt.Printf("listening on %s:%d\n", p.Addr, p.Port)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("urcbot")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
