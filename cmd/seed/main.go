// Command seed replaces the search index with the courses in a JSON seed
// file. With POSTGRES_ENABLED the courses are also written to the course
// store so a later reindex reproduces them.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/coursesearch/internal/app"
	"github.com/utafrali/coursesearch/internal/config"
	"github.com/utafrali/coursesearch/internal/domain"
	esengine "github.com/utafrali/coursesearch/internal/engine/elasticsearch"
	"github.com/utafrali/coursesearch/internal/repository/postgres"
	"github.com/utafrali/coursesearch/internal/seed"
	"github.com/utafrali/coursesearch/internal/service"
	"github.com/utafrali/coursesearch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	file := flag.String("file", cfg.SeedFile, "path to the JSON seed file")
	flag.Parse()

	log := logger.New(app.ServiceName+"-seed", cfg.LogLevel)
	if *file == "" {
		log.Error("no seed file given; pass -file or set SEED_FILE")
		os.Exit(2)
	}
	if cfg.SearchEngine != config.EngineElasticsearch {
		log.Error("seeding needs SEARCH_ENGINE=elasticsearch; the memory engine lives inside the server process")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *file, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, log *slog.Logger) error {
	courses, err := seed.LoadFile(file)
	if err != nil {
		return err
	}

	eng, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, log)
	if err != nil {
		return err
	}
	svc := service.NewSearchService(eng, nil, cfg.SuggestFetchSize, log)
	if err := svc.ReplaceAll(ctx, courses); err != nil {
		return err
	}
	log.Info("index replaced",
		slog.String("file", file),
		slog.String("index", cfg.ElasticsearchIndex),
		slog.Int("count", len(courses)),
	)

	if !cfg.PostgresEnabled {
		return nil
	}
	return storeCourses(ctx, cfg, courses, log)
}

func storeCourses(ctx context.Context, cfg *config.Config, courses []domain.Course, log *slog.Logger) error {
	pool, err := app.OpenCourseStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewCourseRepository(pool)
	for i := range courses {
		if err := repo.Upsert(ctx, &courses[i]); err != nil {
			return err
		}
	}
	log.Info("course store updated", slog.Int("count", len(courses)))
	return nil
}
