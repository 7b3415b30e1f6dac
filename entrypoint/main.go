package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"text2phenotype.com/bioscope/api"
	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/types"
	"text2phenotype.com/bioscope/worker"
)

type Config struct {
	ConfigPath     string `envconfig:"BSC_CONFIG_PATH" required:"true"`
	RestAPIActive  bool   `envconfig:"BSC_REST_API_ACTIVE" default:"false"`
	RestAPIPort    string `envconfig:"BSC_REST_API_PORT" default:"10000"`
	RestAPICache   bool   `envconfig:"BSC_REST_API_CACHE" default:"false"`
	TaggerTimeout  string `envconfig:"BSC_TAGGER_TIMEOUT" default:"10m"`
	RenderFormat   string `envconfig:"BSC_RENDER_FORMAT" default:"png"`
	WorkerRestarts int    `envconfig:"BSC_WORKER_RESTARTS_MAX" default:"0"`
}

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")
	fatalErrLogger := mainLogger.Fatal().Caller()

	runExport := flag.Bool("export", false, "write the attribute table and the training file")
	dotSentence := flag.String("dot", "", "render the tree of `document:sentence`")
	tagHome := flag.String("tag", "", "run the tagger installed in `dir` over every sentence")
	runWorker := flag.Bool("worker", false, "process document tasks from the queue")
	flag.Parse()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}
	cfg, err := types.LoadConfiguration(config.ConfigPath)
	if err != nil {
		fatalErrLogger.Err(err).Str("path", config.ConfigPath).Msg("Failed to load corpus configuration")
		os.Exit(1)
	}
	mainLogger.Info().Str("corpus", cfg.Name).Str("working_dir", cfg.WorkingDir).Msg("Loaded corpus configuration")

	ctx := context.Background()
	src := corpus.NewFileSource(cfg, corpus.DirFetcher{Root: cfg.WorkingDir})

	if *tagHome != "" {
		timeout, err := time.ParseDuration(config.TaggerTimeout)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Invalid tagger timeout")
			os.Exit(1)
		}
		if err := tagCorpus(ctx, cfg, src, *tagHome, timeout, mainLogger); err != nil {
			fatalErrLogger.Err(err).Msg("Failed to tag corpus")
			os.Exit(1)
		}
		mainLogger.Info().Msg("Tagger output written. Exit...")
		return
	}

	ids, err := src.DocumentIDs(ctx)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read document ids")
		os.Exit(1)
	}
	c, err := corpus.LoadCorpus(ctx, src, ids, nil)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to load corpus")
		os.Exit(1)
	}
	mainLogger.Info().Int("documents", len(c.Documents)).Int("listed", len(ids)).Msg("Loaded corpus")

	if *runExport {
		if err := exportCorpus(ctx, cfg, c, mainLogger); err != nil {
			fatalErrLogger.Err(err).Msg("Failed to export corpus")
			os.Exit(1)
		}
	}
	if *dotSentence != "" {
		file, err := renderSentence(ctx, cfg, c, *dotSentence, config.RenderFormat)
		if err != nil {
			fatalErrLogger.Err(err).Str("sentence", *dotSentence).Msg("Failed to render sentence")
			os.Exit(1)
		}
		mainLogger.Info().Str("file", file).Msg("Rendered sentence")
	}

	if config.RestAPIActive {
		apiRequest := &api.Request{Corpus: c, UseHeuristics: cfg.UseHeuristics}
		if config.RestAPICache {
			tasksClient, err := tasks.NewClient()
			if err != nil {
				fatalErrLogger.Err(err).Msg("Failed to create attribute cache client")
				os.Exit(1)
			}
			defer tasksClient.Close()
			apiRequest.Cache = tasksClient.Attributes
		}
		if !*runWorker {
			serveAPI(apiRequest, config.RestAPIPort, mainLogger)
			return
		}
		go serveAPI(apiRequest, config.RestAPIPort, mainLogger)
	}

	if !*runWorker {
		return
	}
	mainLogger.Info().Msg("Start document worker")
	for restarts := 0; config.WorkerRestarts == 0 || restarts < config.WorkerRestarts; restarts++ {
		docWorker, err := worker.New(cfg)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		if err = docWorker.StartWorker(); err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
	fatalErrLogger.Int("restarts", config.WorkerRestarts).Msg("Worker exceeded restarts, exiting")
	os.Exit(1)
}

func serveAPI(apiRequest *api.Request, port string, mainLogger zerolog.Logger) {
	host := fmt.Sprintf(":%s", port)
	mainLogger.Info().Msgf("REST API on %s", host)
	err := http.ListenAndServe(host, apiRequest.Handler())
	mainLogger.Fatal().Caller().Err(err).Msg("REST API stopped with error")
}
