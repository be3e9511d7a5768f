package services

import (
	"regexp"
	"strings"

	"edu-learning-platform/models"
)

// Scorer grades generated answers against their retrieved context with
// deterministic lexical heuristics. All scores land in [0,1]; overall is the
// arithmetic mean of the three metrics.
type Scorer struct {
	sentenceRegex *regexp.Regexp
}

func NewScorer() *Scorer {
	return &Scorer{
		sentenceRegex: regexp.MustCompile(`[.!?]+`),
	}
}

// Score computes faithfulness, relevance and coverage for one answer.
//   - faithfulness: share of answer sentences with lexical support in the
//     retrieved context (no unsupported claims).
//   - relevance: term overlap between the answer and the question (or the
//     ground truth when one is labeled).
//   - coverage: share of context chunks the answer actually draws on.
func (s *Scorer) Score(question, groundTruth, answer string, contexts []string) models.EvaluationMetrics {
	metrics := models.EvaluationMetrics{
		Faithfulness: s.faithfulness(answer, contexts),
		Relevance:    s.relevance(question, groundTruth, answer),
		Coverage:     s.coverage(answer, contexts),
	}
	metrics.Overall = (metrics.Faithfulness + metrics.Relevance + metrics.Coverage) / 3.0
	return metrics
}

func (s *Scorer) faithfulness(answer string, contexts []string) float64 {
	sentences := s.splitSentences(answer)
	if len(sentences) == 0 {
		return 0
	}

	contextTerms := make(map[string]struct{})
	for _, ctx := range contexts {
		for _, term := range contentTerms(ctx) {
			contextTerms[term] = struct{}{}
		}
	}
	if len(contextTerms) == 0 {
		return 0
	}

	supported := 0
	for _, sentence := range sentences {
		terms := contentTerms(sentence)
		if len(terms) == 0 {
			// Sentences with no content terms make no claims.
			supported++
			continue
		}
		matched := 0
		for _, term := range terms {
			if _, ok := contextTerms[term]; ok {
				matched++
			}
		}
		if float64(matched)/float64(len(terms)) >= 0.5 {
			supported++
		}
	}
	return float64(supported) / float64(len(sentences))
}

func (s *Scorer) relevance(question, groundTruth, answer string) float64 {
	score := lexicalOverlap(tokenize(question), answer)
	if groundTruth != "" {
		if truthScore := lexicalOverlap(tokenize(groundTruth), answer); truthScore > score {
			score = truthScore
		}
	}
	return score
}

func (s *Scorer) coverage(answer string, contexts []string) float64 {
	if len(contexts) == 0 {
		return 0
	}

	answerTerms := make(map[string]struct{})
	for _, term := range contentTerms(answer) {
		answerTerms[term] = struct{}{}
	}
	if len(answerTerms) == 0 {
		return 0
	}

	used := 0
	for _, ctx := range contexts {
		for _, term := range contentTerms(ctx) {
			if _, ok := answerTerms[term]; ok {
				used++
				break
			}
		}
	}
	return float64(used) / float64(len(contexts))
}

func (s *Scorer) splitSentences(text string) []string {
	parts := s.sentenceRegex.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// contentTerms keeps tokens long enough to carry meaning; short function
// words would make every sentence look supported.
func contentTerms(text string) []string {
	tokens := tokenize(text)
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) >= 4 {
			terms = append(terms, token)
		}
	}
	return terms
}
