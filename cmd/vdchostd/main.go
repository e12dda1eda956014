// Command vdchostd runs a standalone digitalSTROM vDC host: it listens for
// a single vdSM session, serves a configured set of virtual devices, and
// exposes Prometheus metrics over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dsvdc/vdchost/clog"
	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/host"
	"github.com/dsvdc/vdchost/metrics"
	"github.com/dsvdc/vdchost/session"
)

var cfgFile string

// newRootCmd builds the cobra command tree, grounded on the teacher pack's
// cobra-based CLI (marmos91/dittofs cmd/dittofs/commands/root.go): a
// persistent --config flag shared by every subcommand, and a serve
// subcommand that does the actual work.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vdchostd",
		Short: "digitalSTROM vDC host daemon",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a vdchostd config file (default: ./vdchostd.yaml)")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the vDC host until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	log := clog.NewLogger("vdchostd ")
	log.LogMode(true)

	registerer := prometheus.DefaultRegisterer
	m := metrics.New(registerer)

	identities := session.Identities{
		HostDSUID:   cfg.Host.DSUID,
		HostName:    cfg.Host.Name,
		HostModel:   cfg.Host.Model,
		VDCDSUID:    cfg.VDC.DSUID,
		VDCName:     cfg.VDC.Name,
		VDCModel:    cfg.VDC.Model,
		VDCModelUID: cfg.VDC.ModelUID,
	}

	h := host.New(identities, cfg.Port, cfg.Session, log.With("host"), m)
	for _, dc := range cfg.Devices {
		h.Registry().Add(device.New(dc.DSUID, dc.Name, dc.Model, dc.ModelUID, device.Class(dc.Class)))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("received shutdown signal, stopping")
		cancel()
	}()

	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	}
	metricsLn, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("vdchostd: binding metrics listener: %w", err)
	}
	go func() {
		if err := metricsSrv.Serve(metricsLn); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = metricsSrv.Close()
	}()

	log.Critical("listening for vdSM on port %d, metrics on %s", cfg.Port, cfg.MetricsAddr)
	if err := h.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("vdchostd: %w", err)
	}
	return nil
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
