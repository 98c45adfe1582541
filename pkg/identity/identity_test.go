package identity

import (
	"errors"
	"testing"
)

func TestDeriveCaseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "BHD123A", want: "BHD123"},
		{raw: "BHD.123.1", want: "BHD123"},
		{raw: " MUS45B ", want: "MUS45"},
		{raw: "AB", want: "A"},
		{raw: "A", wantErr: ErrMalformedID},
		{raw: ".", wantErr: ErrMalformedID},
		{raw: "", wantErr: ErrMalformedID},
	}

	for _, tt := range tests {
		got, err := DeriveCaseID(tt.raw)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DeriveCaseID(%q): expected %v, got %v", tt.raw, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("DeriveCaseID(%q): unexpected error %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("DeriveCaseID(%q): expected %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestDeriveVictimID(t *testing.T) {
	tests := []struct {
		suffix  string
		want    string
		wantErr bool
	}{
		{suffix: "", want: "100.V1"},
		{suffix: ".1", want: "100.V1"},
		{suffix: "1", want: "100.V1"},
		{suffix: "A", want: "100.V1"},
		{suffix: "b", want: "100.V2"},
		{suffix: "J", want: "100.V10"},
		{suffix: "K", wantErr: true},
		{suffix: "2", wantErr: true},
	}

	for _, tt := range tests {
		got, err := DeriveVictimID("100", tt.suffix)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSuffix) {
				t.Fatalf("suffix %q: expected ErrUnknownSuffix, got %v", tt.suffix, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("suffix %q: unexpected error %v", tt.suffix, err)
		}
		if got != tt.want {
			t.Fatalf("suffix %q: expected %q, got %q", tt.suffix, tt.want, got)
		}
	}
}

func TestVictimIDFromForm(t *testing.T) {
	tests := map[string]string{
		"BHD123A":   "BHD123.V1",
		"BHD123.1":  "BHD123.V1",
		"BHD123C":   "BHD123.V3",
		"BH.D123.J": "BHD123.V10",
	}
	for raw, want := range tests {
		got, err := VictimIDFromForm(raw)
		if err != nil {
			t.Fatalf("VictimIDFromForm(%q): unexpected error %v", raw, err)
		}
		if got != want {
			t.Fatalf("VictimIDFromForm(%q): expected %q, got %q", raw, want, got)
		}
	}

	if _, err := VictimIDFromForm("BHD123Z"); !errors.Is(err, ErrUnknownSuffix) {
		t.Fatalf("expected ErrUnknownSuffix, got %v", err)
	}
}

func TestSuspectID(t *testing.T) {
	if got := DeriveSuspectID("200", ParsePersonBox("")); got != "200.PB0" {
		t.Fatalf("expected 200.PB0, got %s", got)
	}
	got, err := SuspectIDFromForm("200A", ParsePersonBox("3.0"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got != "200.PB3" {
		t.Fatalf("expected 200.PB3, got %s", got)
	}
}

func TestDerivationIsDeterministic(t *testing.T) {
	inputs := []string{"BHD123A", "X.Y.Z.1", "MUS45B"}
	for _, raw := range inputs {
		a, errA := VictimIDFromForm(raw)
		b, errB := VictimIDFromForm(raw)
		if a != b || !errors.Is(errA, errB) {
			t.Fatalf("expected identical results for %q, got %q/%v and %q/%v", raw, a, errA, b, errB)
		}
	}
}
