// Package soc scores the strength of a case: the probability that the case
// against a suspect leads to an arrest.
package soc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
)

var ErrEmptyModel = errors.New("model has no coefficients")

// Scorer maps a feature row to a probability in [0,1].
type Scorer interface {
	Score(features map[string]float64) (float64, error)
}

// LogisticModel is a trained logistic regression exported as JSON:
//
//	{"version": "2024-03", "intercept": -1.2, "coefficients": {"number_of_victims": 0.4}}
type LogisticModel struct {
	Version      string             `json:"version"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// DecodeModel reads a model from r.
func DecodeModel(r io.Reader) (*LogisticModel, error) {
	var m LogisticModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode soc model: %w", err)
	}
	if len(m.Coefficients) == 0 {
		return nil, ErrEmptyModel
	}
	return &m, nil
}

// LoadModelFile reads a model from a local JSON file.
func LoadModelFile(path string) (*LogisticModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open soc model: %w", err)
	}
	defer f.Close()
	return DecodeModel(f)
}

// Score implements Scorer. Features unknown to the model are ignored and
// coefficients without a feature value contribute nothing.
func (m *LogisticModel) Score(features map[string]float64) (float64, error) {
	z := m.Intercept
	for name, coef := range m.Coefficients {
		z += coef * features[name]
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("soc score is NaN")
	}
	return clamp(p), nil
}

// Features lists the feature names the model uses, sorted.
func (m *LogisticModel) Features() []string {
	out := make([]string, 0, len(m.Coefficients))
	for name := range m.Coefficients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// ScoreAll scores every row and returns the probability per suspect id.
// Rows the scorer rejects are skipped.
func ScoreAll(s Scorer, rows []Row) map[string]float64 {
	out := make(map[string]float64, len(rows))
	failed := 0
	for _, r := range rows {
		p, err := s.Score(r.Features)
		if err != nil {
			failed++
			logger.Debug("[SOC][ScoreAll] Skipping suspect", "suspect_id", r.SuspectID, "err", err)
			continue
		}
		out[r.SuspectID] = clamp(p)
	}
	if failed > 0 {
		logger.Warn("[SOC][ScoreAll] Some suspects could not be scored", "failed", failed, "scored", len(out))
	}
	return out
}
