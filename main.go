package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	Ha "github.com/zain-sajid/haptics/api"
	Ho "github.com/zain-sajid/haptics/obvy"
	Hp "github.com/zain-sajid/haptics/plugin"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "haptics",
		Short:         "Haptic pattern sequencer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "JSON file of HAPTICS_* variables")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newPlayCmd(&configPath))
	root.AddCommand(newPatternsCmd())
	root.AddCommand(newAHAPCmd())
	return root
}

// loadBoard reads config, sets up logging and builds the board
// with its engine and history recorder
func loadBoard(ctx context.Context, configPath string) (*Hs.Config, *Hs.Board, error) {
	cfg, err := Hs.LoadConfig(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}

	level, _ := Hs.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	engine, err := Hp.EngineLookup(cfg.Engine, Hp.EngineOptions{
		MIDIPort: cfg.MIDIPort,
		MIDIRoot: cfg.MIDIRoot,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}

	recorder, err := Hp.NewBadgerRecorder(cfg.HistoryPath, cfg.HistoryBatch)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}

	return cfg, Hs.NewBoard(engine, recorder), nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, board, err := loadBoard(ctx, *configPath)
			if err != nil {
				return err
			}

			otelShutdown, err := Ho.InitOTel(cfg.OTel)
			if err != nil {
				board.Close()
				return err
			}
			defer otelShutdown()

			view, err := Ha.NewView(board)
			if err != nil {
				board.Close()
				return err
			}

			flusher := Hs.NewFlushSupervisor(board.Recorder, cfg.FlushEvery)
			flusher.Start()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return view.Serve(gctx, cfg.Addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				flusher.Stop()
				return nil
			})

			err = g.Wait()
			slog.Info("Shutting down", slog.String("engine", board.Engine.Type()))
			return errors.Join(err, board.Close())
		},
	}
}

func newPlayCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "play <pattern>",
		Short: "Play a catalog pattern and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, board, err := loadBoard(ctx, *configPath)
			if err != nil {
				return err
			}

			outcome, err := board.Play(ctx, args[0])
			if err != nil {
				return errors.Join(err, board.Close())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], outcome)

			if outcome == Hs.OutcomeStarted {
				wctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				if err := board.Wait(wctx, args[0]); err != nil {
					slog.Error("Stopped waiting for pattern", slog.Any("error", err))
				}
			}
			return board.Close()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "longest wait for the session to return to Idle")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print every catalog pattern as a timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, info := range Hs.Patterns() {
				p, err := Hs.BuildPattern(info.Name)
				if err != nil {
					return err
				}
				printTimeline(cmd.OutOrStdout(), info, p)
			}
			return nil
		},
	}
}

func newAHAPCmd() *cobra.Command {
	ahap := &cobra.Command{Use: "ahap", Short: "Apple Haptic and Audio Pattern files"}

	exportCmd := &cobra.Command{
		Use:   "export <pattern>",
		Short: "Write a catalog pattern as AHAP JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := Hs.BuildPattern(args[0])
			if err != nil {
				return err
			}
			data, err := Hp.EncodeAHAP(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate an AHAP file and print its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := Hp.DecodeAHAP(args[0], data)
			if err != nil {
				return err
			}
			printTimeline(cmd.OutOrStdout(), Hs.PatternInfo{Name: p.Name, Label: p.Name}, p)
			return nil
		},
	}

	ahap.AddCommand(exportCmd, checkCmd)
	return ahap
}

func printTimeline(w io.Writer, info Hs.PatternInfo, p Ht.HapticPattern) {
	_, _ = fmt.Fprintf(w, "%s (%s): %d events, plays for %v\n", info.Label, info.Name, len(p.Events), p.Duration)
	for _, ev := range p.Events {
		_, _ = fmt.Fprintf(w, "  %6.3fs %-10s intensity=%.2f sharpness=%.2f duration=%v\n",
			ev.Offset.Seconds(), Hs.KindString(ev.Kind), ev.Intensity, ev.Sharpness, ev.Duration)
	}
}
