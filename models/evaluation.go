package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EvaluationDataset groups labeled questions for quality runs.
type EvaluationDataset struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     string             `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// EvaluationQuestion is one labeled question of a dataset.
type EvaluationQuestion struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DatasetID primitive.ObjectID `bson:"dataset_id" json:"dataset_id"`
	Question  string             `bson:"question" json:"question"`

	// GroundTruth is optional; scoring works from retrieved context alone.
	GroundTruth string `bson:"ground_truth,omitempty" json:"ground_truth,omitempty"`
}

// EvaluationMetrics are the per-question quality scores, each in [0,1].
type EvaluationMetrics struct {
	Faithfulness float64 `bson:"faithfulness" json:"faithfulness"`
	Relevance    float64 `bson:"relevance" json:"relevance"`
	Coverage     float64 `bson:"coverage" json:"coverage"`
	Overall      float64 `bson:"overall" json:"overall"`
}

// EvaluationChunkRef records one chunk used to answer an evaluation question.
type EvaluationChunkRef struct {
	ChunkID   string  `bson:"chunk_id" json:"chunk_id"`
	Relevance float64 `bson:"relevance" json:"relevance"`
}

// EvaluationResult is one scored question of one run.
type EvaluationResult struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RunID      string               `bson:"run_id" json:"run_id"`
	DatasetID  primitive.ObjectID   `bson:"dataset_id" json:"dataset_id"`
	QuestionID primitive.ObjectID   `bson:"question_id" json:"question_id"`
	Question   string               `bson:"question" json:"question"`
	Answer     string               `bson:"answer" json:"answer"`
	ChunksUsed []EvaluationChunkRef `bson:"chunks_used" json:"chunks_used"`
	Metrics    EvaluationMetrics    `bson:"metrics" json:"metrics"`
	Passed     bool                 `bson:"passed" json:"passed"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
}

// EvaluationError captures a single question whose pipeline failed. Errored
// questions are excluded from metric averages and pass/fail counts.
type EvaluationError struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Error      string `json:"error"`
}

// EvaluationSummary aggregates one run.
type EvaluationSummary struct {
	RunID          string  `json:"run_id"`
	TotalQuestions int     `json:"total_questions"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Errors         int     `json:"errors"`
	PassRate       float64 `json:"pass_rate"`
	AvgFaithful    float64 `json:"avg_faithfulness"`
	AvgRelevance   float64 `json:"avg_relevance"`
	AvgCoverage    float64 `json:"avg_coverage"`
	AvgOverall     float64 `json:"avg_overall"`
	DurationMs     int64   `json:"duration_ms"`
}

// EvaluationRunResponse is the payload for POST /evaluations/run.
type EvaluationRunResponse struct {
	Results []EvaluationResult `json:"results"`
	Errors  []EvaluationError  `json:"errors"`
	Summary EvaluationSummary  `json:"summary"`
}

// CreateDatasetRequest seeds a dataset with its questions in one call.
type CreateDatasetRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description,omitempty"`
	Questions   []struct {
		Question    string `json:"question" binding:"required,min=1"`
		GroundTruth string `json:"ground_truth,omitempty"`
	} `json:"questions" binding:"required,min=1"`
}
