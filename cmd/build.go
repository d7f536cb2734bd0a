package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/illusionfield/scssc/internal/batch"
	"github.com/illusionfield/scssc/internal/cache"
	"github.com/illusionfield/scssc/internal/config"
	"github.com/illusionfield/scssc/internal/engine/dartsass"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/progress"
	"github.com/illusionfield/scssc/internal/service"
	"github.com/illusionfield/scssc/pkg/compiler"
)

var errCompileFailed = errors.New("some style sheets failed to compile")

type buildParams struct {
	dir         string
	outDir      string
	transport   compiler.Transport
	sassBinary  string
	concurrency int
	cacheFile   string
	noCache     bool
	summary     bool
	progress    bool
}

func (p *buildParams) register(fs *pflag.FlagSet) {
	fs.StringVarP(&p.dir, "dir", "d", ".", "application root directory")
	fs.StringVarP(&p.outDir, "out", "o", "", "output directory (default "+config.DefaultOutDir+")")
	fs.Var(
		enumflag.New(&p.transport, "transport", compiler.TransportIds, enumflag.EnumCaseInsensitive),
		"transport", "how root files reach the engine (path, buffer)")
	fs.StringVar(&p.sassBinary, "sass", "", "Dart Sass executable (default "+dartsass.DefaultBinary+")")
	fs.IntVarP(&p.concurrency, "concurrency", "j", 0, "roots compiled at once (default GOMAXPROCS)")
	fs.StringVar(&p.cacheFile, "cache-file", "", "SQLite file keeping compile results between runs")
	fs.BoolVar(&p.noCache, "no-cache", false, "compile every root")
	fs.BoolVar(&p.progress, "progress", false, "show a progress bar even when not on a terminal")
}

// overrides turns the flags set on the command line into configuration
// overrides.
func (p *buildParams) overrides(fs *pflag.FlagSet) map[string]any {
	o := map[string]any{}
	if fs.Changed("out") {
		o["outDir"] = p.outDir
	}
	if fs.Changed("transport") {
		o["transport"] = compiler.TransportIds[p.transport][0]
	}
	if fs.Changed("sass") {
		o["sassBinary"] = p.sassBinary
	}
	if fs.Changed("concurrency") {
		o["concurrency"] = p.concurrency
	}
	if fs.Changed("cache-file") {
		o["cacheFile"] = p.cacheFile
	}
	return o
}

func init() {
	var params buildParams

	build := &cobra.Command{
		Use:   "build",
		Short: "Compile all root style sheets once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()

			cfg, err := loadConfig(cmd, &params, log)
			if err != nil {
				return err
			}

			env, err := setup(cmd.Context(), cfg, &params, log)
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := env.worker.Build(cmd.Context())
			if err != nil {
				return err
			}

			if params.summary {
				if err := renderSummary(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			if report.Failed() > 0 {
				return errCompileFailed
			}
			return nil
		},
	}

	params.register(build.Flags())
	build.Flags().BoolVar(&params.summary, "summary", false, "print a table of all roots")

	RootCommand.AddCommand(build)
}

func loadConfig(cmd *cobra.Command, params *buildParams, log *logging.Logger) (*config.Config, error) {
	dir, err := filepath.Abs(params.dir)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", params.dir)
	}

	cfg := config.Load(dir, log)
	if o := params.overrides(cmd.Flags()); len(o) > 0 {
		if cfg, err = cfg.Override(o); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}
	return cfg, nil
}

// environment is everything a build needs, wired from the configuration.
type environment struct {
	worker *service.Worker
	loader *batch.Loader
	engine *dartsass.Engine
	cache  *cache.Cache
}

func (e *environment) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.engine != nil {
		_ = e.engine.Close()
	}
}

func setup(ctx context.Context, cfg *config.Config, params *buildParams, log *logging.Logger) (*environment, error) {
	debug := config.DebugMode()
	env := &environment{}

	engine, err := dartsass.Start(dartsass.Options{Binary: cfg.SassBinary, Logger: log})
	if err != nil {
		return nil, err
	}
	env.engine = engine

	c := compiler.New(engine).
		WithIncludePaths(cfg.IncludePaths).
		WithQuietDeps(cfg.QuietDepsOrDefault()).
		WithVerbose(cfg.Verbose).
		WithSilenceDeprecations(cfg.SilenceDeprecations).
		WithTransport(cfg.TransportOrDefault()).
		WithLogger(log).
		WithDebug(debug)

	env.loader = batch.New(cfg).WithLogger(log).WithDebug(debug)

	bar := progress.New(os.Stderr, "compiling", params.progress)

	env.worker = service.NewWorker(env.loader, c, cfg.OutDir, log, bar).
		WithConcurrency(cfg.ConcurrencyOrDefault()).
		WithInterval(cfg.IntervalOrDefault())

	if !params.noCache {
		env.cache = cache.New(cfg.CacheSizeOrDefault()).WithLogger(log)
		if cfg.CacheFile != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.CacheFile), 0o755); err != nil {
				env.Close()
				return nil, err
			}
			store, err := cache.OpenStore(ctx, cfg.CacheFile, cfg.CacheSizeOrDefault(), log, debug)
			if err != nil {
				env.Close()
				return nil, err
			}
			env.cache.WithStore(store)
		}
		env.worker.WithCache(env.cache)
	}

	log.Debugf("building %s into %s (config: %s)", cfg.Root(), cfg.OutDir, cfg.Source())
	return env, nil
}
