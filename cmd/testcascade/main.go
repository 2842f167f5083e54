package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/devrickard/testcascade/internal/application"
	"github.com/devrickard/testcascade/internal/application/coordinator"
	"github.com/devrickard/testcascade/internal/application/httpclient"
	"github.com/devrickard/testcascade/internal/application/llmextractor"
	"github.com/devrickard/testcascade/internal/application/requestbuilder"
	"github.com/devrickard/testcascade/internal/application/runner"
	"github.com/devrickard/testcascade/internal/application/scheduler"
	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/cli"
	"github.com/devrickard/testcascade/internal/infrastructure/asserter"
	"github.com/devrickard/testcascade/internal/infrastructure/config"
	"github.com/devrickard/testcascade/internal/infrastructure/extractor"
	"github.com/devrickard/testcascade/internal/infrastructure/generation"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
	"github.com/devrickard/testcascade/internal/infrastructure/openapi"
	"github.com/devrickard/testcascade/internal/infrastructure/postmanexport"
	"github.com/devrickard/testcascade/internal/infrastructure/reporter"
)

func main() {
	logger := logging.NewLogger()
	cfg := config.NewProvider()

	sub := substitutor.NewService(substitutor.WithLogger(logger))
	assertionEvaluator := asserter.NewService(sub)
	varExtractor := extractor.NewService(extractor.WithLogger(logger))
	reqBuilder := requestbuilder.NewService(sub)

	pool := httpclient.NewPool(
		httpclient.WithRequestTimeout(time.Duration(cfg.GetInt("execution.request_timeout_seconds"))*time.Second),
		httpclient.WithAllowUntrustedSSL(cfg.GetBool("execution.allow_untrusted_ssl")),
		httpclient.WithRateLimit(cfg.GetFloat64("execution.rate_limit_rps")),
	)

	testRunner := runner.NewService(
		pool,
		reqBuilder,
		assertionEvaluator,
		varExtractor,
		runner.WithLogger(logger),
		runner.WithMaxRetries(cfg.GetInt("execution.max_retries")),
		runner.WithRetryDelay(cfg.GetInt("execution.retry_delay_ms")),
	)

	sched := scheduler.NewService(
		testRunner,
		scheduler.WithLogger(logger),
		scheduler.WithMaxParallelism(cfg.GetInt("execution.max_parallelism")),
	)

	coord := coordinator.NewService(sched, coordinator.WithLogger(logger))

	textExtractor := llmextractor.NewService(llmextractor.WithLogger(logger))

	openapiIntake := openapi.NewService()
	postmanExporter := postmanexport.NewExporter()
	rep := reporter.NewService()

	var genClient application.GenerationClient
	if apiKey := cfg.GetString("llm.api_key"); apiKey != "" {
		client, err := generation.NewClient(context.Background(), apiKey, cfg.GetString("llm.model"))
		if err != nil {
			logger.Warnf("generation client unavailable: %v", err)
		} else {
			genClient = client
		}
	}

	deps := cli.Dependencies{
		Config:      cfg,
		Coordinator: coord,
		Extractor:   textExtractor,
		Generation:  genClient,
		OpenAPI:     openapiIntake,
		Postman:     postmanExporter,
		Reporter:    rep,
		UploadDir:   cfg.GetString("storage.upload_dir"),
	}

	if err := cli.Execute(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
