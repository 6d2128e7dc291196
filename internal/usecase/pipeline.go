package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hanakhry/JARR/internal/enricher"
	"github.com/hanakhry/JARR/internal/ports"
)

const defaultBatchSize = 100

// PipelineDeps wires the adapters into the enrichment sweep.
type PipelineDeps struct {
	Articles  ports.ArticleRepository
	Registry  *enricher.Registry
	Logger    *slog.Logger
	BatchSize int
}

// Pipeline implements the article-enrichment workflow: resolve the
// generator for each pending article, produce its content payload and
// feature vector, and persist the result.
type Pipeline struct {
	articles  ports.ArticleRepository
	registry  *enricher.Registry
	logger    *slog.Logger
	batchSize int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		articles:  deps.Articles,
		registry:  deps.Registry,
		logger:    logger,
		batchSize: batchSize,
	}
}

// ProcessPending runs one enrichment sweep. A failing article is logged and
// skipped; only infrastructure failures abort the sweep.
func (p *Pipeline) ProcessPending(ctx context.Context) error {
	if p.articles == nil || p.registry == nil {
		return nil
	}

	pending, err := p.articles.PendingEnrichment(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("load pending articles: %w", err)
	}

	p.logger.Debug("enrichment sweep", "pending", len(pending))

	for _, article := range pending {
		gen := p.registry.ForArticle(article)

		ok, content := gen.Generate(ctx)
		vector := gen.Vector(ctx)

		if err := p.articles.SaveEnrichment(ctx, article.ID, ok, content, vector); err != nil {
			p.logger.Error("persist enrichment", "article", article.ID, "error", err)
			continue
		}

		p.logger.Debug("article enriched", "article", article.ID,
			"ok", ok, "type", content["type"])
	}

	return nil
}
