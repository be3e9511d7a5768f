package services

import (
	"context"
	"sync"
	"time"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// EvaluationService drives labeled question sets through the full answer
// pipeline in bounded-concurrency batches. One question's failure is captured
// and never aborts its batch or the run; only dataset-level errors are
// terminal.
type EvaluationService struct {
	store     EvaluationStore
	memory    *MemoryService
	synthesis *SynthesisService
	scorer    *Scorer

	batchWidth      int
	maxQuestions    int
	passThreshold   float64
	questionTimeout time.Duration
}

func NewEvaluationService(store EvaluationStore, memory *MemoryService, synthesis *SynthesisService, batchWidth, maxQuestions int, passThreshold float64, questionTimeout time.Duration) *EvaluationService {
	if batchWidth <= 0 {
		batchWidth = 5
	}
	return &EvaluationService{
		store:           store,
		memory:          memory,
		synthesis:       synthesis,
		scorer:          NewScorer(),
		batchWidth:      batchWidth,
		maxQuestions:    maxQuestions,
		passThreshold:   passThreshold,
		questionTimeout: questionTimeout,
	}
}

// questionOutcome is the settled result of one question: exactly one of
// result or err is set.
type questionOutcome struct {
	question models.EvaluationQuestion
	result   *models.EvaluationResult
	err      error
}

// Run evaluates every question of the dataset and aggregates a summary.
// Completion order across batches is not dataset order; callers needing the
// original order should re-sort results by question id.
func (es *EvaluationService) Run(ctx context.Context, identity string, datasetID primitive.ObjectID) (*models.EvaluationRunResponse, error) {
	tracer := otel.Tracer("evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.run")
	defer span.End()

	started := time.Now()

	dataset, err := es.store.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	questions, err := es.store.QuestionsByDataset(ctx, datasetID, es.maxQuestions)
	if err != nil {
		return nil, utils.WrapError(utils.ErrInternal, "failed to load dataset questions", err)
	}
	if len(questions) == 0 {
		return nil, utils.NewError(utils.ErrValidation, "dataset has no questions")
	}

	runID := uuid.NewString()
	span.SetAttributes(
		attribute.String("evaluation.run_id", runID),
		attribute.Int("evaluation.questions", len(questions)),
	)
	logger.Info("Evaluation run started", "run_id", runID, "dataset", dataset.Name, "questions", len(questions))

	outcomes := make([]questionOutcome, len(questions))
	for batchStart := 0; batchStart < len(questions); batchStart += es.batchWidth {
		batchEnd := batchStart + es.batchWidth
		if batchEnd > len(questions) {
			batchEnd = len(questions)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				outcomes[idx] = es.settleQuestion(ctx, identity, runID, datasetID, questions[idx])
			}(i)
		}
		wg.Wait()
	}

	results := make([]models.EvaluationResult, 0, len(outcomes))
	errorsList := make([]models.EvaluationError, 0)
	for _, outcome := range outcomes {
		if outcome.err != nil {
			errorsList = append(errorsList, models.EvaluationError{
				QuestionID: outcome.question.ID.Hex(),
				Question:   outcome.question.Question,
				Error:      outcome.err.Error(),
			})
			continue
		}
		results = append(results, *outcome.result)
	}

	if len(results) > 0 {
		if err := es.store.InsertResults(ctx, results); err != nil {
			return nil, utils.WrapError(utils.ErrInternal, "failed to persist evaluation results", err)
		}
	}

	summary := es.summarize(runID, len(questions), results, len(errorsList), time.Since(started))
	logger.Info("Evaluation run finished", "run_id", runID, "passed", summary.Passed, "failed", summary.Failed, "errors", summary.Errors)

	return &models.EvaluationRunResponse{
		Results: results,
		Errors:  errorsList,
		Summary: summary,
	}, nil
}

// settleQuestion runs one question with its own timeout and converts any
// panic-free failure into a recorded outcome.
func (es *EvaluationService) settleQuestion(ctx context.Context, identity, runID string, datasetID primitive.ObjectID, question models.EvaluationQuestion) questionOutcome {
	qctx := ctx
	if es.questionTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, es.questionTimeout)
		defer cancel()
	}

	result, err := es.evaluateQuestion(qctx, identity, runID, datasetID, question)
	if err != nil {
		return questionOutcome{
			question: question,
			err:      utils.WrapError(utils.ErrScoring, "question pipeline failed", err),
		}
	}
	return questionOutcome{question: question, result: result}
}

func (es *EvaluationService) evaluateQuestion(ctx context.Context, identity, runID string, datasetID primitive.ObjectID, question models.EvaluationQuestion) (*models.EvaluationResult, error) {
	assembled, err := es.memory.BuildContext(ctx, identity, question.Question, "", 0)
	if err != nil {
		return nil, err
	}

	synthesized, err := es.synthesis.Synthesize(ctx, question.Question, assembled.Items)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, 0, len(assembled.Retrieved))
	chunksUsed := make([]models.EvaluationChunkRef, 0, len(assembled.Retrieved))
	for _, chunk := range assembled.Retrieved {
		contexts = append(contexts, chunk.Text)
		chunksUsed = append(chunksUsed, models.EvaluationChunkRef{
			ChunkID:   chunk.ChunkID,
			Relevance: chunk.Score,
		})
	}

	metrics := es.scorer.Score(question.Question, question.GroundTruth, synthesized.Answer, contexts)

	return &models.EvaluationResult{
		RunID:      runID,
		DatasetID:  datasetID,
		QuestionID: question.ID,
		Question:   question.Question,
		Answer:     synthesized.Answer,
		ChunksUsed: chunksUsed,
		Metrics:    metrics,
		Passed:     metrics.Overall >= es.passThreshold,
		CreatedAt:  time.Now(),
	}, nil
}

// summarize aggregates scored results only: errored questions count toward
// totals and the errors counter but never dilute metric averages or the pass
// rate.
func (es *EvaluationService) summarize(runID string, totalQuestions int, results []models.EvaluationResult, errorCount int, elapsed time.Duration) models.EvaluationSummary {
	summary := models.EvaluationSummary{
		RunID:          runID,
		TotalQuestions: totalQuestions,
		Errors:         errorCount,
		DurationMs:     elapsed.Milliseconds(),
	}

	for _, result := range results {
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.AvgFaithful += result.Metrics.Faithfulness
		summary.AvgRelevance += result.Metrics.Relevance
		summary.AvgCoverage += result.Metrics.Coverage
		summary.AvgOverall += result.Metrics.Overall
	}

	scored := summary.Passed + summary.Failed
	if scored > 0 {
		summary.PassRate = float64(summary.Passed) / float64(scored)
		summary.AvgFaithful /= float64(scored)
		summary.AvgRelevance /= float64(scored)
		summary.AvgCoverage /= float64(scored)
		summary.AvgOverall /= float64(scored)
	}
	return summary
}

// CreateDataset stores a dataset with its questions in one call.
func (es *EvaluationService) CreateDataset(ctx context.Context, identity string, req models.CreateDatasetRequest) (primitive.ObjectID, error) {
	dataset := &models.EvaluationDataset{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     identity,
		CreatedAt:   time.Now(),
	}

	questions := make([]models.EvaluationQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, models.EvaluationQuestion{
			Question:    q.Question,
			GroundTruth: q.GroundTruth,
		})
	}

	return es.store.CreateDataset(ctx, dataset, questions)
}
