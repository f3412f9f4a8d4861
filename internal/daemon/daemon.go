// Package daemon implements the capture session lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"firestige.xyz/ipsniff/internal/config"
	"firestige.xyz/ipsniff/internal/core/decoder"
	"firestige.xyz/ipsniff/internal/log"
	"firestige.xyz/ipsniff/internal/metrics"
	"firestige.xyz/ipsniff/internal/pipeline"
	"firestige.xyz/ipsniff/internal/report"
	"firestige.xyz/ipsniff/internal/sink"
	"firestige.xyz/ipsniff/internal/source"
)

// Options overrides process-wide resources, mainly for tests.
type Options struct {
	StatusOut io.Writer            // Default os.Stdout
	Registry  *prometheus.Registry // Default a fresh registry with Go and process collectors
	Source    source.Source        // Default opened from config.Capture
}

// Daemon owns one capture session: source, sink, pipeline and metrics server.
type Daemon struct {
	config *config.Config

	src           source.Source
	sink          sink.Sink
	pipeline      *pipeline.Pipeline
	metricsServer *metrics.Server // nil if metrics disabled

	stopOnce sync.Once
	stopErr  error
}

// New wires a session from cfg. Nothing runs until Start and Run.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	d := &Daemon{config: cfg}

	src := opts.Source
	if src == nil {
		var err error
		if src, err = source.New(cfg.Capture); err != nil {
			return nil, fmt.Errorf("failed to open capture source: %w", err)
		}
	}
	d.src = src

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	recorder := metrics.NewRecorder(reg)

	var p *pipeline.Pipeline
	s, err := sink.New(cfg.Sink, func(err error) { p.RecordDropped(err) })
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create sink: %w", err)
	}
	d.sink = s

	var status *pipeline.StatusLine
	if cfg.Status.Enabled {
		if cfg.Sink.Type == config.SinkConsole {
			log.GetLogger().Info("status line disabled while reports go to the console")
		} else {
			status = pipeline.NewStatusLine(opts.StatusOut, cfg.Status.Interval)
		}
	}

	p = pipeline.New(pipeline.Config{
		Source:     src,
		Decoder:    decoder.NewIPv4Decoder(),
		Emitter:    report.NewReporter(s),
		Status:     status,
		Metrics:    recorder,
		BufferSize: cfg.Capture.SnapLen,
	})
	d.pipeline = p

	if cfg.Metrics.Enabled {
		d.metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, reg)
	}
	return d, nil
}

// Start starts background services.
func (d *Daemon) Start() error {
	if d.metricsServer != nil {
		if err := d.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"source":   d.config.Capture.Source,
		"protocol": d.config.Capture.Protocol,
		"sink":     d.sink.Name(),
	}).Info("ipsniff session started")
	return nil
}

// Run captures until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// source ends, then stops the session. SIGHUP logs the current counters.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		for {
			select {
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					d.logStats("current counters")
					continue
				}
				log.GetLogger().WithField("signal", sig.String()).Info("received shutdown signal")
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	runErr := d.pipeline.Run(ctx)
	stopErr := d.Stop()
	if runErr != nil {
		return runErr
	}
	return stopErr
}

// Stop releases the source, drains the sink and stops the metrics server.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		var errs []error
		if err := d.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		if err := d.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
		if d.metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.metricsServer.Stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		d.stopErr = errors.Join(errs...)
		d.logStats("ipsniff session stopped")
	})
	return d.stopErr
}

// Stats returns the session counters.
func (d *Daemon) Stats() pipeline.Stats {
	return d.pipeline.Stats()
}

// MetricsAddr returns the bound metrics address, or "" when metrics are off.
func (d *Daemon) MetricsAddr() string {
	if d.metricsServer == nil || d.metricsServer.Addr() == nil {
		return ""
	}
	return d.metricsServer.Addr().String()
}

func (d *Daemon) logStats(msg string) {
	st := d.pipeline.Stats()
	log.GetLogger().WithFields(map[string]interface{}{
		"tcp":       st.TCP,
		"udp":       st.UDP,
		"icmp":      st.ICMP,
		"igmp":      st.IGMP,
		"others":    st.Other,
		"total":     st.Total,
		"malformed": st.Malformed,
		"reported":  st.Reported,
		"dropped":   st.Dropped,
	}).Info(msg)
}
