package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/drakos74/smart-exec/infra/config"
	coin "github.com/drakos74/smart-exec/internal"
	"github.com/drakos74/smart-exec/internal/model"
	"github.com/drakos74/smart-exec/internal/server"
)

type options struct {
	config string
	env    []string
}

func newRootCmd() *cobra.Command {
	opts := new(options)
	root := &cobra.Command{
		Use:           "smart-exec",
		Short:         "smart-exec - signal fusion and smart order execution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.config, "config", "", fmt.Sprintf("config file path (default %s if present)", config.Path))
	root.PersistentFlags().StringSliceVar(&opts.env, "env", nil, "env files to load (default .env if present)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

// load resolves the effective config.
func (o *options) load() (config.Config, error) {
	if err := config.LoadEnv(o.env...); err != nil {
		return config.Config{}, err
	}
	path := o.config
	if path == "" {
		if _, err := os.Stat(config.Path); err != nil {
			log.Info().Msg("using default config")
			return config.Overlay(config.Default(), os.LookupEnv)
		}
		path = config.Path
	}
	return config.Load(path)
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			b, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

type runOptions struct {
	instruments []string
	interval    time.Duration
	start       float64
	sigma       float64
	trade       bool
	quantity    float64
	confidence  float64
	algo        string
	execution   model.Algo
}

func newRunCmd(opts *options) *cobra.Command {
	run := new(runOptions)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine on a simulated market feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			level, err := zerolog.ParseLevel(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("could not parse log level: %w", err)
			}
			zerolog.SetGlobalLevel(level)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run.run(ctx, cfg)
		},
	}
	cmd.Flags().StringSliceVar(&run.instruments, "instruments", []string{"AAPL", "MSFT"}, "instruments to simulate")
	cmd.Flags().DurationVar(&run.interval, "interval", time.Second, "interval between market updates")
	cmd.Flags().Float64Var(&run.start, "start", 100, "starting price")
	cmd.Flags().Float64Var(&run.sigma, "sigma", 0.02, "standard deviation of the price moves")
	cmd.Flags().BoolVar(&run.trade, "trade", false, "submit an order for every fused buy or sell signal")
	cmd.Flags().Float64Var(&run.quantity, "quantity", 100, "quantity of the signal orders")
	cmd.Flags().Float64Var(&run.confidence, "confidence", 0.5, "minimum signal confidence for an order")
	cmd.Flags().StringVar(&run.algo, "algo", model.Balanced.String(), "execution algorithm of the signal orders")
	return cmd
}

func (r *runOptions) run(ctx context.Context, cfg config.Config) error {
	algo, ok := model.ParseAlgo(r.algo)
	if !ok {
		return fmt.Errorf("unknown execution algorithm '%s'", r.algo)
	}
	r.execution = algo

	engine, err := coin.NewEngine(cfg)
	if err != nil {
		return err
	}
	engine.OnExecution(func(exec model.Execution) error {
		log.Info().
			Str("order", exec.OrderID).
			Str("side", exec.Side.String()).
			Float64("quantity", exec.Quantity).
			Float64("price", exec.Price).
			Msg("execution")
		return nil
	})
	engine.OnStatus(func(order model.Order) error {
		log.Info().
			Str("order", order.ID).
			Str("status", order.Status.String()).
			Str("reason", order.Reason).
			Msg("status")
		return nil
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(ctx)
	})
	if cfg.Admin.Enabled {
		admin := server.NewServer("smart-exec", cfg.Admin.Port).
			Add(server.Admin(engine, engine.Statistics)...)
		g.Go(func() error {
			return admin.Run(ctx)
		})
	}
	g.Go(func() error {
		return r.simulate(ctx, engine)
	})

	err = g.Wait()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := engine.Shutdown(shutdown); serr != nil {
		err = errors.Join(err, serr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// simulate feeds the engine with random walk prices until the context is done.
func (r *runOptions) simulate(ctx context.Context, engine *coin.Engine) error {
	f := newFeed(r.instruments, r.start, r.sigma, 0.001, uint64(time.Now().UnixNano()))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, t := range f.next() {
				fused, err := engine.UpdateMarketData(ctx, t.instrument, t.price, t.bid, t.ask, t.volume)
				if err != nil {
					log.Warn().Err(err).Str("instrument", t.instrument).Msg("could not update market data")
					continue
				}
				if request := r.order(fused); request != nil {
					if _, err := engine.Submit(request); err != nil {
						log.Error().Err(err).Str("instrument", t.instrument).Msg("could not submit order")
					}
				}
			}
		}
	}
}

// order turns the signal into an order request, if trading is enabled and the signal is actionable.
func (r *runOptions) order(fused *model.FusedSignal) *model.Request {
	if !r.trade || fused == nil || fused.Confidence < r.confidence {
		return nil
	}
	side := fused.Direction.Side()
	if side == model.NoSide {
		return nil
	}
	return model.NewRequest(fused.Instrument).
		WithSide(side).
		WithQuantity(r.quantity).
		WithAlgo(r.execution).
		WithTimeInForce(model.IOC)
}
