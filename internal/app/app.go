// Package app wires configuration into the repositories and services shared
// by the API server and the monitor CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/timmy/dialogbot/internal/classify"
	"github.com/timmy/dialogbot/internal/config"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/explain"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/render"
	"github.com/timmy/dialogbot/internal/repository"
	"github.com/timmy/dialogbot/internal/service"
	"github.com/timmy/dialogbot/internal/similarity"
	"github.com/timmy/dialogbot/internal/storage"
	"gorm.io/gorm"
)

// App holds the wired services. Close releases everything it opened.
type App struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *sql.DB
	Conversations  *service.ConversationService
	Similar        *service.SimilarService
	Monitor        *service.MonitorService
	Visualizations *service.VisualizationService

	closers []io.Closer
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.GetDefault()
	}
	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if a.DB, err = db.DB(); err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	a.closers = append(a.closers, a.DB)

	conversations := repository.NewConversationRepository(db)

	embedder, err := service.NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, err
	}

	var classifier classify.Classifier = classify.Disabled{}
	if cfg.Classifier.Enabled {
		classifier = classify.NewOpenAIClassifier(&classify.OpenAIConfig{
			APIKey:  cfg.Classifier.APIKey,
			BaseURL: cfg.Classifier.BaseURL,
			Model:   cfg.Classifier.Model,
			Timeout: cfg.Classifier.Timeout,
		})
		log.WithField("model", cfg.Classifier.Model).Info("Classifier enabled")
	}

	var generator explain.Generator
	if cfg.Explainer.Enabled {
		generator = explain.NewChatGenerator(&explain.ChatGeneratorConfig{
			Model:   cfg.Explainer.Model,
			APIKey:  cfg.Explainer.APIKey,
			BaseURL: cfg.Explainer.BaseURL,
			Timeout: cfg.Explainer.Timeout,
		})
		log.WithField("model", cfg.Explainer.Model).Info("Explainer enabled")
	}

	var mirror service.VectorMirror
	if cfg.Qdrant.Enabled {
		qdrant, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: embedder.Dimensions(),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, qdrant)
		if err := qdrant.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		mirror = qdrant
	}

	baselines, err := a.openBaselineStore(db)
	if err != nil {
		return nil, err
	}

	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		LocalDir:  cfg.Storage.LocalDir,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if b, ok := objectStorage.(storage.BucketEnsurer); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	engine := similarity.NewEngine(generator, &similarity.Config{
		TopK:           cfg.Similarity.TopK,
		ExplainTimeout: cfg.Similarity.ExplainTimeout,
	})
	sink := render.NewPNGSink(objectStorage, &render.PNGSinkConfig{
		Prefix: cfg.Visualization.Prefix,
		Width:  cfg.Visualization.Width,
		Height: cfg.Visualization.Height,
	})

	a.Conversations = service.NewConversationService(conversations, embedder, classifier, mirror, log)
	a.Similar = service.NewSimilarService(embedder, conversations, engine, cfg.Similarity.TopDimensions)
	a.Monitor = service.NewMonitorService(
		drift.NewDetector(conversations, baselines),
		repository.NewDriftCheckRepository(db),
		cfg.Drift.Threshold,
	)
	a.Visualizations, err = service.NewVisualizationService(conversations, sink, objectStorage, &service.VisualizationConfig{
		Prefix:    cfg.Visualization.Prefix,
		Workers:   cfg.Visualization.Workers,
		MaxPoints: cfg.Visualization.MaxPoints,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"embedding":      embedder.Model(),
		"dimensions":     embedder.Dimensions(),
		"baseline_store": cfg.Drift.BaselineStore,
		"storage":        cfg.Storage.Type,
	}).Info("Application initialized")
	return a, nil
}

// openBaselineStore selects the baseline slot backend configured in drift.baseline_store.
func (a *App) openBaselineStore(db *gorm.DB) (drift.BaselineStore, error) {
	switch a.Config.Drift.BaselineStore {
	case "file", "":
		return repository.NewFileBaselineStore(a.Config.Drift.BaselinePath), nil
	case "db":
		return repository.NewDBBaselineStore(db), nil
	case "badger":
		store, err := repository.OpenBadgerBaselineStore(a.Config.Drift.BadgerDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "memory":
		return drift.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown baseline store %q", a.Config.Drift.BaselineStore)
	}
}

// Close shuts down the worker pool and closes opened resources in reverse order.
func (a *App) Close() error {
	if a.Visualizations != nil {
		a.Visualizations.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
