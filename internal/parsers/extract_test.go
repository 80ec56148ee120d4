package parsers

import "testing"

func TestExtractProvider(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "mParking convention",
			filename: "Servis__MicropaymentMerchantReport_mParking_Grad_Beograd_101__20240301_120000_.xls",
			want:     "Grad Beograd",
		},
		{
			name:     "mParking convention single token",
			filename: "report_mParking_Subotica_7__20240301_.xlsx",
			want:     "Subotica",
		},
		{
			name:     "merchant report convention",
			filename: "Servis__MicropaymentMerchantReport_Parking_Servis_Nis_5__20240301_.xls",
			want:     "Servis Nis",
		},
		{
			name:     "no convention matches",
			filename: "monthly_summary.xls",
			want:     UnknownProvider,
		},
		{
			name:     "empty filename",
			filename: "",
			want:     UnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractProvider(tt.filename)
			if got != tt.want {
				t.Errorf("ExtractProvider(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestExtractServiceCode(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{
			name:  "code embedded in label",
			label: "Parking zona 1 - 9111",
			want:  "9111",
		},
		{
			name:  "first four digit run wins",
			label: "Zona 9112 / 9113 kombinovano",
			want:  "9112",
		},
		{
			name:  "shorter digit runs skipped",
			label: "Zona 12 parking 9114",
			want:  "9114",
		},
		{
			name:  "five digit run is not a code",
			label: "Parking 91234 centar",
			want:  "Parking 91234 centar",
		},
		{
			name:  "no digits at all",
			label: "Dnevna karta",
			want:  "Dnevna karta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractServiceCode(tt.label)
			if got != tt.want {
				t.Errorf("ExtractServiceCode(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

// ExtractServiceCode must be stable when applied to its own output: a bare
// code maps to itself, so re-deriving from stored codes cannot drift.
func TestExtractServiceCodeIdempotent(t *testing.T) {
	labels := []string{"Parking zona 1 - 9111", "9115", "Dnevna karta"}

	for _, label := range labels {
		once := ExtractServiceCode(label)
		twice := ExtractServiceCode(once)
		if once != twice {
			t.Errorf("ExtractServiceCode not idempotent for %q: %q then %q", label, once, twice)
		}
	}
}
