// Package analysis runs the classify → evaluate → score flow against the
// remote backend for one upload. Later stages depend on earlier ones and
// run them internally when not selected; internally-run output is not
// included in the result.
package analysis

import (
	"context"
	"fmt"
	"os"

	"github.com/pwin-ai/pdf-analyzer/internal/cache"
	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"go.uber.org/zap"
)

// Backend is the subset of the backend client the pipeline needs.
type Backend interface {
	Classify(ctx context.Context, docs []*models.UploadedDocument) ([]models.Classification, error)
	EvaluateRFP(ctx context.Context, classifications []models.Classification) (*models.RFPEvaluation, error)
	ReadinessScore(ctx context.Context, classifications []models.Classification, eval *models.RFPEvaluation) (*models.ReadinessReport, error)
}

// User-facing halt messages, matching what the analysis gates mean.
const (
	msgNoRFP  = "No RFP document found. Please upload RFP documents."
	msgNotMet = "Requirement not met. Please upload documents that cover scope, objectives, tasks, and deliverables."
)

// Pipeline orchestrates backend calls for one analyze action.
type Pipeline struct {
	backend Backend
	cache   *cache.ResultCache
	logger  *zap.Logger
}

// NewPipeline creates a pipeline. cache may be nil to disable memoization.
func NewPipeline(backend Backend, resultCache *cache.ResultCache, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		backend: backend,
		cache:   resultCache,
		logger:  logger,
	}
}

// Run executes the selected operations for the session's documents.
// Gate stops (no RFP, requirement not met) come back inside the result as
// a Halt; only backend failures return an error. The result is memoized
// by file content + operations.
func (p *Pipeline) Run(ctx context.Context, docs []*models.UploadedDocument, ops []models.Operation) (*models.AnalysisResult, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to analyze")
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations selected")
	}

	cacheKey := p.cacheKey(docs, ops)
	if cacheKey != "" {
		if cached := p.cache.Get(cacheKey); cached != nil {
			p.logger.Info("analysis served from cache",
				zap.Int("documents", len(docs)))
			return cached, nil
		}
	}

	result := &models.AnalysisResult{Operations: ops}

	wantClassify := result.HasOperation(models.OpClassify)
	wantEvaluate := result.HasOperation(models.OpEvaluateRFP)
	wantScore := result.HasOperation(models.OpReadinessScore)

	classifications, err := p.backend.Classify(ctx, docs)
	if err != nil {
		return nil, err
	}
	if wantClassify {
		result.Classifications = classifications
	}

	// The evaluate and score stages are meaningless without an RFP in the
	// upload, so classification gates the rest of the flow.
	if !hasRFP(classifications) {
		result.Halt = &models.Halt{Stage: models.OpClassify, Message: msgNoRFP}
		p.store(cacheKey, result)
		return result, nil
	}
	if !wantEvaluate && !wantScore {
		p.store(cacheKey, result)
		return result, nil
	}

	eval, err := p.backend.EvaluateRFP(ctx, classifications)
	if err != nil {
		return nil, err
	}
	if wantEvaluate {
		result.Evaluation = eval
	}

	if !eval.RequirementMet {
		result.Halt = &models.Halt{Stage: models.OpEvaluateRFP, Message: msgNotMet}
		p.store(cacheKey, result)
		return result, nil
	}
	if !wantScore {
		p.store(cacheKey, result)
		return result, nil
	}

	report, err := p.backend.ReadinessScore(ctx, classifications, eval)
	if err != nil {
		return nil, err
	}
	result.Readiness = report

	p.store(cacheKey, result)
	return result, nil
}

func (p *Pipeline) cacheKey(docs []*models.UploadedDocument, ops []models.Operation) string {
	if p.cache == nil {
		return ""
	}
	fileData := make([][]byte, 0, len(docs))
	for _, doc := range docs {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			// Unreadable file: skip memoization, let Classify report it.
			return ""
		}
		fileData = append(fileData, data)
	}
	return cache.Key(fileData, ops)
}

func (p *Pipeline) store(key string, result *models.AnalysisResult) {
	if key != "" && p.cache != nil {
		p.cache.Put(key, result)
	}
}

func hasRFP(classifications []models.Classification) bool {
	for _, c := range classifications {
		if c.DocType == models.DocTypeRFP {
			return true
		}
	}
	return false
}
