package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	TokensUsed         metric.Int64Counter
	RetrievalDuration  metric.Float64Histogram
	ChunksIngested     metric.Int64Counter
	EvaluationOutcomes metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("edu-learning-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"llm.tokens.used",
		metric.WithDescription("Total LLM tokens used"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"retrieval.duration",
		metric.WithDescription("Hybrid retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter(
		"ingestion.chunks.total",
		metric.WithDescription("Total chunks written across generations"),
	)
	if err != nil {
		return nil, err
	}

	evaluationOutcomes, err := meter.Int64Counter(
		"evaluation.questions.total",
		metric.WithDescription("Evaluation question outcomes by status"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		TokensUsed:         tokensUsed,
		RetrievalDuration:  retrievalDuration,
		ChunksIngested:     chunksIngested,
		EvaluationOutcomes: evaluationOutcomes,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records LLM token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordRetrieval records hybrid retrieval latency
func (m *Metrics) RecordRetrieval(duration float64, results int) {
	attrs := []attribute.KeyValue{
		attribute.Int("retrieval.results", results),
	}

	m.RetrievalDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordChunksIngested records chunk generation writes
func (m *Metrics) RecordChunksIngested(count int64) {
	m.ChunksIngested.Add(context.Background(), count)
}

// RecordEvaluationOutcome records one evaluation question outcome
func (m *Metrics) RecordEvaluationOutcome(status string) {
	attrs := []attribute.KeyValue{
		attribute.String("evaluation.status", status),
	}

	m.EvaluationOutcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
