package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EvalCase is one labelled question. Expected matches a feature_id or a
// feature_name, case-insensitively.
type EvalCase struct {
	Query    string `json:"query"`
	Expected string `json:"expected"`
}

// EvalOutcome is the result of one case.
type EvalOutcome struct {
	Case     EvalCase
	Rank     int // 1-based rank of the expected feature, 0 when not retrieved
	Top      string
	Distance float64 // distance of the top match
	Err      error
}

// EvalReport aggregates retrieval quality over a set of cases.
type EvalReport struct {
	K        int
	Outcomes []EvalOutcome
	HitAt1   float64
	HitAtK   float64
	MRR      float64
	Errors   int
}

// LoadEvalCases reads a JSON array of evaluation cases.
func LoadEvalCases(path string) ([]EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval cases: %w", err)
	}
	var cases []EvalCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse eval cases %s: %w", path, err)
	}
	return cases, nil
}

// Evaluate runs every case through q and measures where the expected
// feature ranks among the top k results.
func Evaluate(ctx context.Context, q *Querier, collection string, cases []EvalCase, k int) EvalReport {
	report := EvalReport{K: k}
	var hits1, hitsK int
	var reciprocal float64

	for _, c := range cases {
		out := EvalOutcome{Case: c}
		results, err := q.Query(ctx, c.Query, collection, k)
		if err != nil {
			out.Err = err
			report.Errors++
			report.Outcomes = append(report.Outcomes, out)
			continue
		}
		if len(results) > 0 {
			out.Top = results[0].Properties.FeatureName
			out.Distance = results[0].Distance
		}
		for i, r := range results {
			if strings.EqualFold(r.Properties.FeatureID, c.Expected) ||
				strings.EqualFold(r.Properties.FeatureName, c.Expected) {
				out.Rank = i + 1
				break
			}
		}

		switch {
		case out.Rank == 1:
			hits1++
			hitsK++
		case out.Rank > 1:
			hitsK++
		}
		if out.Rank > 0 {
			reciprocal += 1 / float64(out.Rank)
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	if n := len(cases); n > 0 {
		report.HitAt1 = float64(hits1) / float64(n)
		report.HitAtK = float64(hitsK) / float64(n)
		report.MRR = reciprocal / float64(n)
	}
	return report
}
