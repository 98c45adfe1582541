package priority

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

var (
	ErrMissingWeight = errors.New("missing weight")
	ErrMissingColumn = errors.New("missing column")
)

// Factor names as they appear on the Parameters sheet.
const (
	FactorVictimWilling  = "Victim Willing to Testify"
	FactorBioLocation    = "Bio and Location of Suspect"
	FactorOthersArrested = "Other Suspect(s) Arrested"
	FactorPoliceWilling  = "Police Willing to Arrest"
	FactorRecency        = "Recency of Case"
	FactorSolvability    = "Solvability"
	FactorStrength       = "Strength of Case"
	FactorEminence       = "Eminence"
)

var requiredFactors = []string{
	FactorVictimWilling,
	FactorBioLocation,
	FactorOthersArrested,
	FactorPoliceWilling,
	FactorRecency,
	FactorSolvability,
	FactorStrength,
	FactorEminence,
}

// Layout of the Parameters sheet, by zero based column and data row.
const (
	solvKeyCol, solvWeightCol, solvRows  = 0, 1, 7
	prioKeyCol, prioWeightCol, prioRows  = 4, 5, 3
	countCol, multiplierCol, bucketCount = 6, 7, 10
)

// Parameters are the externally configured scoring coefficients.
type Parameters struct {
	Weights     map[string]float64
	Multipliers map[int]float64
}

// ParseParameters reads the Parameters sheet from its raw cell grid, whose
// first row is a header. Columns are addressed by position because the sheet
// repeats header names. Blank solvability weights count as 0; every required
// factor must be present.
func ParseParameters(values [][]string) (*Parameters, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: parameters sheet is empty", ErrMissingWeight)
	}
	t := values[1:]
	p := &Parameters{
		Weights:     make(map[string]float64),
		Multipliers: make(map[int]float64),
	}

	for row := 0; row < solvRows; row++ {
		key := strings.TrimSpace(cell(t, row, solvKeyCol))
		if key == "" {
			continue
		}
		w, _ := sheet.Float(cell(t, row, solvWeightCol))
		p.Weights[key] = w
	}
	for row := 0; row < prioRows; row++ {
		key := strings.TrimSpace(cell(t, row, prioKeyCol))
		if key == "" {
			continue
		}
		w, ok := sheet.Float(cell(t, row, prioWeightCol))
		if !ok {
			return nil, fmt.Errorf("%w: %q has no numeric weight", ErrMissingWeight, key)
		}
		p.Weights[key] = w
	}
	for row := 0; row < bucketCount; row++ {
		count, ok := sheet.Int(cell(t, row, countCol))
		if !ok {
			continue
		}
		m, _ := sheet.Float(cell(t, row, multiplierCol))
		p.Multipliers[count] = m
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that every factor the scorer needs has a weight.
func (p *Parameters) Validate() error {
	for _, f := range requiredFactors {
		if _, ok := p.Weights[f]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingWeight, f)
		}
	}
	return nil
}

// Total is the sum of every configured weight.
func (p *Parameters) Total() float64 {
	var sum float64
	for _, w := range p.Weights {
		sum += w
	}
	return sum
}

// VictimMultiplier looks up the multiplier bucket for count. Missing
// buckets yield 0.
func (p *Parameters) VictimMultiplier(count int) float64 {
	return p.Multipliers[count]
}

func cell(rows [][]string, row, col int) string {
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}
