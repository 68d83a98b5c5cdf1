package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/lagren/statusguard/config"
	"github.com/lagren/statusguard/monitor"
	"github.com/lagren/statusguard/persistence"
	"github.com/lagren/statusguard/probe"
	"github.com/lagren/statusguard/slack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	configPath := "config.json"

	app := &cobra.Command{
		Use:          os.Args[0],
		Short:        "Monitors services and reports outages to Slack",
		SilenceUsage: true,
	}

	app.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Path to the configuration file")

	app.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Probe services and serve the Slack endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, configPath)
		},
	})

	app.AddCommand(&cobra.Command{
		Use:   "cycle",
		Short: "Add missing entries from config to statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cycle(cmd.Context(), configPath)
		},
	})

	app.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the last published status of every service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return status(cmd.Context(), configPath)
		},
	})

	exitIfError(app.Execute())
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := cfg.RequireSlack(); err != nil {
		return err
	}

	logrus.SetLevel(cfg.Level())

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := slack.NewClient(cfg.BotToken)

	engine, err := monitor.NewEngine(ctx, cfg.Services, store, slack.NewPublisher(client, cfg.ChannelID), monitor.Options{
		EscalationDelay: cfg.Escalation(),
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	scheduler := &monitor.Scheduler{
		Engine:    engine,
		Prober:    probe.New(cfg.Timeout()),
		Interval:  cfg.Interval(),
		TickFloor: cfg.Floor(),
	}

	bot := &statusBot{
		engine:    engine,
		responder: client,
		channelID: cfg.ChannelID,
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: handlers.LoggingHandler(os.Stdout, bot.router(cfg.SigningKey)),
	}

	go scheduler.Run(ctx)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("Could not shut down HTTP server: %s", err)
		}
	}()

	logrus.Infof("Listening on %s", cfg.Listen)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	bot.Wait()

	return nil
}

func cycle(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := persistence.Cycle(ctx, store, cfg.ServiceNames(), time.Now())
	if err != nil {
		return err
	}

	if len(added) == 0 {
		fmt.Println("All entries in config are already in statistics.")
		return nil
	}

	for _, name := range added {
		fmt.Printf("Added %s\n", name)
	}

	return nil
}

func status(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.ReadStatistics(ctx)
	if err != nil {
		return err
	}

	fmt.Println(statusReport(cfg.ServiceNames(), stats, nil))

	return nil
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := persistence.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := persistence.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func exitIfError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
