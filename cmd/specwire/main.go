package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	specwire "github.com/specwire/specwire-go"
	"github.com/specwire/specwire-go/spec"
	"github.com/specwire/specwire-go/transports/amqp"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	var (
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:     "specwire",
		Short:   "Specification-driven event server tooling",
		Long:    "Specwire binds an AsyncAPI-style specification to runtime validation, and can run a mock server that emits schema-conformant fake events.",
		Version: fmt.Sprintf("%s (commit: %s)", version, gitCommit),
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	var (
		interval   time.Duration
		sampleSize int
		seed       uint64
		brokerURL  string
	)
	mockCmd := &cobra.Command{
		Use:   "mock <spec-file>",
		Short: "Run a mock server from a specification",
		Long:  "Loads and resolves the specification, registers fake handlers for every handler reference, and emits fake payloads for every subscribe-direction message on a periodic schedule.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			opts := []specwire.Option{
				specwire.WithMockMode(true),
				specwire.WithEmissionInterval(interval),
				specwire.WithFormatSampleSize(sampleSize),
				specwire.WithLogger(logger),
			}
			if seed != 0 {
				opts = append(opts, specwire.WithFakerSeed(seed))
			}
			if brokerURL != "" {
				broadcaster, err := amqp.NewBroadcaster(brokerURL, amqp.WithBroadcastLogger(logger))
				if err != nil {
					return fmt.Errorf("failed to connect broadcaster: %w", err)
				}
				defer broadcaster.Close()
				opts = append(opts, specwire.WithEmitter(broadcaster))
			}

			server, err := specwire.FromFile(args[0], opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("mock server running", "spec", args[0], "interval", interval)
			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	mockCmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Emission interval per subscribe message")
	mockCmd.Flags().IntVar(&sampleSize, "sample-size", 20, "Fake values drawn per string format (0 disables faker formats)")
	mockCmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible fake data")
	mockCmd.Flags().StringVarP(&brokerURL, "broker", "b", "", "AMQP URL for broadcasting emissions across instances")
	rootCmd.AddCommand(mockCmd)

	validateCmd := &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "Resolve and validate a specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := specwire.FromFile(args[0], specwire.WithMockMode(true), specwire.WithLogger(newLogger(verbose)))
			if err != nil {
				return err
			}
			doc := server.Document()
			fmt.Printf("%s %s: %d channel(s)\n", doc.Info.Title, doc.Info.Version, len(doc.Channels))
			return nil
		},
	}
	rootCmd.AddCommand(validateCmd)

	docsCmd := &cobra.Command{
		Use:   "docs <spec-file>",
		Short: "Print the resolved specification as JSON",
		Long:  "Loads the specification, resolves every internal reference and prints the self-contained document, the form a documentation endpoint would serve.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := spec.LoadFile(args[0])
			if err != nil {
				return err
			}
			data, err := doc.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
