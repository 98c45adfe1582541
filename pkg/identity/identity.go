// Package identity derives the stable case, victim and suspect identifiers
// from raw interview form numbers.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedID   = errors.New("malformed form number")
	ErrUnknownSuffix = errors.New("unknown victim suffix")
)

var victimSuffixes = map[string]int{
	"":   1,
	"1":  1,
	".1": 1,
	"A":  1,
	"B":  2,
	"C":  3,
	"D":  4,
	"E":  5,
	"F":  6,
	"G":  7,
	"H":  8,
	"I":  9,
	"J":  10,
}

func normalize(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
}

// DeriveCaseID removes separators from a form number and drops its trailing
// sub-index character.
func DeriveCaseID(raw string) (string, error) {
	stripped := normalize(raw)
	if len(stripped) < 2 {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, raw)
	}
	return stripped[:len(stripped)-1], nil
}

// DeriveVictimID appends the ".V<n>" suffix for a victim sequence letter.
func DeriveVictimID(caseID, suffix string) (string, error) {
	n, ok := victimSuffixes[strings.ToUpper(strings.TrimSpace(suffix))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSuffix, suffix)
	}
	return caseID + ".V" + strconv.Itoa(n), nil
}

// VictimIDFromForm derives the victim id straight from a raw form number,
// using its last character as the sequence suffix.
func VictimIDFromForm(raw string) (string, error) {
	caseID, err := DeriveCaseID(raw)
	if err != nil {
		return "", err
	}
	stripped := normalize(raw)
	return DeriveVictimID(caseID, stripped[len(stripped)-1:])
}

// DeriveSuspectID appends the ".PB<n>" person box suffix.
func DeriveSuspectID(caseID string, personBox int) string {
	return caseID + ".PB" + strconv.Itoa(personBox)
}

// SuspectIDFromForm is DeriveCaseID followed by DeriveSuspectID.
func SuspectIDFromForm(raw string, personBox int) (string, error) {
	caseID, err := DeriveCaseID(raw)
	if err != nil {
		return "", err
	}
	return DeriveSuspectID(caseID, personBox), nil
}

// ParsePersonBox reads a person box number cell. Blank or non-numeric
// values count as box 0.
func ParsePersonBox(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
