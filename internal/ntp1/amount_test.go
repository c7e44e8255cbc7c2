package ntp1

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"1000", "1000", nil},
		{" 42 ", "42", nil},
		{"18446744073709551615", "18446744073709551615", nil},
		{"18446744073709551616", "", ErrAmountTooLarge},
		{"0", "", ErrAmountNegative},
		{"-5", "", ErrAmountNegative},
		{"", "", ErrAmountSyntax},
		{"1.5", "", ErrAmountSyntax},
		{"ten", "", ErrAmountSyntax},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseAmount(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMaxAmount_IsCopy(t *testing.T) {
	m := MaxAmount()
	m.SetInt64(1)
	if MaxAmount().String() != "18446744073709551615" {
		t.Fatal("MaxAmount returned shared value")
	}
}
