package tx

import "testing"

func TestFeeForSize(t *testing.T) {
	tests := []struct {
		size int
		want uint64
	}{
		{0, 10_000},
		{999, 10_000},
		{1000, 20_000},
		{2500, 30_000},
	}
	for _, tt := range tests {
		if got := FeeForSize(tt.size, 10_000); got != tt.want {
			t.Errorf("FeeForSize(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestRequiredFee_UsesSignedSize(t *testing.T) {
	tx := sampleTx()
	if got := RequiredFee(tx, 10_000); got != FeeForSize(tx.Size(), 10_000) {
		t.Errorf("RequiredFee = %d", got)
	}
}
