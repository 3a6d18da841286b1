package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/sbm69/internal/device"
	goble "github.com/srg/sbm69/internal/device/go-ble"
	"github.com/srg/sbm69/internal/report"
	"github.com/srg/sbm69/internal/session"
	"github.com/srg/sbm69/pkg/config"
)

func addFetchFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()

	flags := cmd.Flags()
	flags.BoolP("verbose", "v", false, "Verbose output (same as --log-level debug)")
	flags.Duration("timeout", defaults.FetchTimeout, "Time to wait for the device to finish sending measurements")
	flags.Duration("scan-timeout", defaults.ScanTimeout, "Time to search for the device")
	flags.Duration("connect-timeout", defaults.ConnectTimeout, "Time allowed for a single connection attempt")
	flags.Int("connect-attempts", defaults.ConnectAttempts, "Connection attempts before giving up")
	flags.StringP("format", "f", defaults.OutputFormat, "Output format (csv, json, yaml)")
	flags.Bool("strict", defaults.Strict, "Reject records with an undefined pulse rate range code")
	flags.Bool("partial", defaults.PartialOnTimeout, "Print measurements received before a timeout")
	flags.String("name", defaults.DeviceName, "Advertised device name to look for when no address is given")
}

// configFromFlags overlays command flags on the default configuration
func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	flags := cmd.Flags()

	var err error
	if cfg.FetchTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ScanTimeout, err = flags.GetDuration("scan-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = flags.GetDuration("connect-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConnectAttempts, err = flags.GetInt("connect-attempts"); err != nil {
		return nil, err
	}
	if cfg.OutputFormat, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.Strict, err = flags.GetBool("strict"); err != nil {
		return nil, err
	}
	if cfg.PartialOnTimeout, err = flags.GetBool("partial"); err != nil {
		return nil, err
	}
	if cfg.DeviceName, err = flags.GetString("name"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg, "verbose")
	if err != nil {
		return err
	}

	filter := goble.Filter{Name: cfg.DeviceName}
	if len(args) == 1 {
		filter.Address = args[0]
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fetch(ctx, cmd, cfg, filter, logger)
}

func fetch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, filter goble.Filter, logger *logrus.Logger) error {
	stderr := cmd.ErrOrStderr()

	dev, err := goble.DeviceFactory()
	if err != nil {
		return &scanError{err: err}
	}

	if filter.Address != "" {
		fmt.Fprintf(stderr, "Scanning for an %s device with address %s...\n", cfg.DeviceName, filter.Address)
	} else {
		fmt.Fprintf(stderr, "Scanning for an %s device...\n", cfg.DeviceName)
	}

	adv, err := goble.NewScanner(dev, logger).Find(ctx, filter, cfg.ScanTimeout, nil)
	if err != nil {
		var notFound *device.NotFoundError
		if ctx.Err() != nil || errors.As(err, &notFound) {
			return err
		}
		return &scanError{err: err}
	}
	fmt.Fprintf(stderr, "Device with address %s found.\n", adv.Addr())

	connector := goble.NewConnector(dev, adv.Addr(), &goble.ConnectOptions{
		Attempts:       cfg.ConnectAttempts,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)

	progress := NewProgressPrinter(stderr, "Fetching measurements", "Connecting")
	progress.Start()
	defer progress.Stop()

	res, err := session.New(connector,
		session.WithLogger(logger),
		session.WithTimeout(cfg.FetchTimeout),
		session.WithStrictDecoding(cfg.Strict),
		session.WithPartialOnTimeout(cfg.PartialOnTimeout),
		session.WithStateCallback(progress.StateCallback()),
	).Fetch(ctx)
	progress.Stop()

	if res == nil {
		return err
	}
	if werr := writeResult(cmd, cfg, res); werr != nil {
		return werr
	}
	return err
}

// writeResult prints identity and warnings to stderr and the report to stdout
func writeResult(cmd *cobra.Command, cfg *config.Config, res *session.Result) error {
	stderr := cmd.ErrOrStderr()

	if err := report.WriteIdentity(stderr, res.DeviceInfo, isTerminal(stderr)); err != nil {
		return err
	}
	if n := len(res.Rejected); n > 0 {
		fmt.Fprintf(stderr, "Warning: %d record(s) could not be decoded and were skipped.\n", n)
	}
	return report.Write(cmd.OutOrStdout(), cfg.Format(), res)
}
