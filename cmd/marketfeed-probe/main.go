// Package main wires up a Feed Manager against a live host and prints
// decoded events to stdout until interrupted. It is a probe, not a
// general-purpose CLI: flags cover just enough to point it at a host and
// a credential pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dhanhq/marketfeed/internal/apm"
	"github.com/dhanhq/marketfeed/internal/health"
	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/metrics"
	"github.com/dhanhq/marketfeed/manager"
	"github.com/dhanhq/marketfeed/wire"
)

func main() {
	host := flag.String("host", "api-feed.dhan.co", "feed WebSocket host, no scheme")
	clientID := flag.String("client-id", os.Getenv("DHAN_CLIENT_ID"), "client id")
	accessToken := flag.String("access-token", os.Getenv("DHAN_ACCESS_TOKEN"), "access token")
	instrumentsFlag := flag.String("instruments", "NSE_EQ:11536", "comma-separated EXCHANGE:SECURITY_ID pairs")
	rawFrames := flag.Bool("raw-frames", false, "also print raw frame byte counts")
	healthPort := flag.Int("health-port", 8081, "health check server port")
	telemetry := flag.Bool("telemetry", false, "enable OTel tracing and Prometheus metrics")
	metricsPort := flag.Int("metrics-port", 9090, "Prometheus metrics port (with -telemetry)")
	flag.Parse()

	if *clientID == "" || *accessToken == "" {
		fmt.Fprintln(os.Stderr, "error: -client-id and -access-token (or DHAN_CLIENT_ID / DHAN_ACCESS_TOKEN) are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	log := logger.New(os.Stderr, logger.LevelInfo, "marketfeed.probe")

	if *telemetry {
		traceProvider := apm.NewTraceProvider(log, apm.WithProvider(apm.ConsoleProvider, log))
		defer traceProvider.Stop()

		metrics.NewMetricProvider(
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
			metrics.WithServiceName(metrics.DefaultServiceName+"-probe"),
		)
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(*metricsPort)))
		log.Info(ctx, "telemetry enabled", "metrics_port", *metricsPort)
	}

	if err := run(ctx, log, *host, *clientID, *accessToken, *instrumentsFlag, *rawFrames, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log logger.LoggerInterface, host, clientID, accessToken, instrumentsFlag string, rawFrames bool, healthPort int) error {
	instruments, err := parseInstruments(instrumentsFlag)
	if err != nil {
		return fmt.Errorf("parsing -instruments: %w", err)
	}

	m := manager.NewBuilder(host, clientID, accessToken).
		WithLogger(log).
		With(
			manager.WithMaxConnections(1),
			manager.WithRawFrames(rawFrames),
			manager.WithReconnectDelay(2*time.Second),
		).
		Build()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("starting manager: %w", err)
	}
	defer m.Shutdown(context.Background())

	healthServer := health.NewServer(healthPort, "dev")
	healthServer.RegisterDetailedCheck("feed", m.DetailedCheckFunc())
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
		defer healthServer.Stop(context.Background())
	}

	if err := m.Subscribe(ctx, wire.ModeTicker, instruments); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	log.Info(ctx, "subscribed", "instruments", len(instruments))

	recv, err := m.SubscribeParsed(0)
	if err != nil {
		return fmt.Errorf("attaching parsed receiver: %w", err)
	}

	// A nil channel blocks forever in the select below, so raw frames
	// simply never fire when disabled.
	var rawCh <-chan []byte
	if rawFrames {
		r, ok, err := m.SubscribeRaw(0)
		if err != nil {
			return fmt.Errorf("attaching raw receiver: %w", err)
		}
		if ok {
			rawCh = r.Recv()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-recv.Recv():
			if ev == nil {
				return nil
			}
			fmt.Printf("%s security=%d response_code=%d\n", ev.Kind, ev.Header.SecurityID, ev.Header.ResponseCode)
		case frame, ok := <-rawCh:
			if ok {
				fmt.Printf("raw frame: %d bytes\n", len(frame))
			}
		}
	}
}

func parseInstruments(s string) ([]wire.Instrument, error) {
	var out []wire.Instrument
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid instrument %q, want EXCHANGE:SECURITY_ID", pair)
		}
		out = append(out, wire.Instrument{ExchangeSegment: parts[0], SecurityID: parts[1]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instruments given")
	}
	return out, nil
}
