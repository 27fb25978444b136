package coord

import "testing"

func TestPosScale(t *testing.T) {
	tests := []struct {
		p    Pos
		n    int
		want Pos
	}{
		{Pos{}, 256, Pos{}},
		{Pos{X: 1, Y: -2, Z: 3}, 16, Pos{X: 16, Y: -32, Z: 48}},
		{Pos{X: -1, Y: 0, Z: 1}, 1, Pos{X: -1, Y: 0, Z: 1}},
	}
	for _, tt := range tests {
		if got := tt.p.Scale(tt.n); got != tt.want {
			t.Errorf("%s.Scale(%d) = %s, want %s", tt.p, tt.n, got, tt.want)
		}
	}
}

func TestPosString(t *testing.T) {
	if got := (Pos{X: -4, Y: 64, Z: 7}).String(); got != "(-4,64,7)" {
		t.Errorf("String() = %q", got)
	}
}
