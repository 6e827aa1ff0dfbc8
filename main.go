package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"campus-eats/auth"
	"campus-eats/bot"
	"campus-eats/config"
	"campus-eats/db"
	"campus-eats/docstore"
	"campus-eats/httpapi"
	"campus-eats/payment"
	"campus-eats/services"
	"campus-eats/state"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	verbose bool
	memory  bool
	seed    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "campus-eats",
	Short: "Campus food ordering: Telegram consoles, REST API and document store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the REST API and the change feed",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := db.Init(cmd.Context(), cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer db.Close()
		return applyMigrations(cmd.Context(), logger)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write demo credentials, staff and restaurants",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := db.Init(cmd.Context(), cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer db.Close()
		if err := services.Seed(cmd.Context(), docstore.NewPostgres(db.Pool, nil, logger)); err != nil {
			return err
		}
		logger.Info("seeded demo data")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	serveCmd.Flags().BoolVar(&memory, "memory", false, "keep documents and accounts in memory (no database)")
	serveCmd.Flags().BoolVar(&seed, "seed", false, "write demo data before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	var (
		docs     docstore.Store
		provider auth.Provider
	)
	if memory {
		docs = docstore.NewMemory()
		provider = auth.NewMemory(cfg.App.BcryptCost)
		seed = true
		logger.Info("using in-memory store")
	} else {
		if err := db.Init(ctx, cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer db.Close()

		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, logger); err != nil {
				return err
			}
		}

		feed, closeFeed, err := openFeed(cfg.Feed)
		if err != nil {
			return err
		}
		defer closeFeed()
		pg := docstore.NewPostgres(db.Pool, feed, logger)
		g.Go(func() error { return pg.Run(ctx) })
		docs = pg
		provider = auth.NewPostgres(db.Pool, cfg.App.BcryptCost)
	}

	if seed {
		if err := services.Seed(ctx, docs); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	svc := services.New(docs, provider, payment.NewSimulated(cfg.Payment.PayPalDelay), services.Config{
		StripeURL:     cfg.Payment.StripeURL,
		DefaultWallet: cfg.App.DefaultWallet,
	}, logger)

	served := false
	if cfg.HTTP.Addr != "" {
		h := httpapi.NewHandler(docs, cfg.App.DefaultWallet, logger)
		srv := httpapi.NewServer(cfg.HTTP.Addr, h.Router())
		g.Go(func() error { return srv.Run(ctx) })
		logger.Info("http api listening", zap.String("addr", cfg.HTTP.Addr))
		served = true
	}
	if cfg.Telegram.Token != "" {
		reg := state.NewRegistry(cfg.App.DefaultWallet, cfg.App.ToastDuration)
		b, err := bot.New(cfg.Telegram, svc, docs, reg, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		g.Go(func() error { return b.Run(ctx) })
		served = true
	}
	if !served {
		return errors.New("nothing to serve: set TOKEN and/or HTTP_ADDR")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped")
	return nil
}

// openFeed builds the change feed named by cfg. The returned func releases it.
func openFeed(cfg config.FeedConfig) (docstore.Feed, func(), error) {
	switch cfg.Driver {
	case config.FeedPostgres:
		return docstore.NewPGFeed(db.Pool, cfg.Channel), func() {}, nil
	case config.FeedRabbitMQ:
		mq := cfg.RabbitMQ
		f, err := docstore.DialAMQPFeed(docstore.AMQPConfig{
			Host:     mq.Host,
			Port:     mq.Port,
			User:     mq.User,
			Password: mq.Password,
			VHost:    mq.VHost,
			UseTLS:   mq.UseTLS,
			Exchange: mq.Exchange,
		})
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	return nil, func() {}, nil
}
