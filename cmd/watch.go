package cmd

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/illusionfield/scssc/internal/batch"
	"github.com/illusionfield/scssc/internal/config"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/pool"
)

const (
	buildTask = "build"
	debounce  = 100 * time.Millisecond
)

type watchParams struct {
	buildParams
	interval    time.Duration
	metricsAddr string
}

func init() {
	var params watchParams

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a style sheet changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()

			cfg, err := loadConfig(cmd, &params.buildParams, log)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				if cfg, err = cfg.Override(map[string]any{"interval": params.interval.String()}); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := setup(ctx, cfg, &params.buildParams, log)
			if err != nil {
				return err
			}
			defer env.Close()

			if params.metricsAddr != "" {
				go serveMetrics(ctx, params.metricsAddr, log)
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			for _, dir := range env.loader.Dirs() {
				if err := watchTree(watcher, dir, cfg); err != nil {
					log.Warnf("not watching %s: %v", dir, err)
				}
			}

			p := pool.New(ctx, 1)
			p.Add(buildTask, env.worker.Execute)

			log.Infof("watching %s (rebuilding at least every %v)", cfg.Root(), cfg.IntervalOrDefault())
			return watchLoop(ctx, watcher, p, cfg, log)
		},
	}

	params.register(watch.Flags())
	watch.Flags().DurationVar(&params.interval, "interval", config.DefaultInterval, "rebuild interval without changes")
	watch.Flags().StringVar(&params.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address, e.g. :9090")

	RootCommand.AddCommand(watch)
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, p *pool.Pool, cfg *config.Config, log *logging.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watchTree(watcher, ev.Name, cfg); err != nil {
						log.Warnf("not watching %s: %v", ev.Name, err)
					}
				}
			}
			if !relevant(ev.Name) {
				continue
			}
			log.Debugf("%s: %s", ev.Op, ev.Name)
			if err := p.TriggerAfter(buildTask, debounce); err != nil {
				log.Warnf("failed to schedule a build: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watch error: %v", err)
		}
	}
}

// relevant reports whether a change to name can affect the build. Removed
// directories show up by name only, so extensionless names count.
func relevant(name string) bool {
	switch filepath.Ext(name) {
	case ".scss", ".sass", ".css", "":
		return true
	}
	return false
}

// watchTree adds dir and every directory below it that a build reads.
func watchTree(watcher *fsnotify.Watcher, dir string, cfg *config.Config) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && skipDir(d.Name(), p, cfg) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

func skipDir(name, p string, cfg *config.Config) bool {
	if p == cfg.OutDir {
		return true
	}
	for _, pattern := range batch.DefaultExcluded {
		if name == pattern || (strings.HasPrefix(pattern, ".") && strings.HasPrefix(name, ".")) {
			return true
		}
	}
	return false
}

func serveMetrics(ctx context.Context, addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Infof("serving metrics at %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}
