package main

import (
	"testing"

	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

func TestParsePos(t *testing.T) {
	tests := []struct {
		in      string
		want    region.Pos
		wantErr bool
	}{
		{"0,0,0", region.Pos{}, false},
		{"-3, 1 ,12", region.Pos{X: -3, Y: 1, Z: 12}, false},
		{"1,2", region.Pos{}, true},
		{"1,a,2", region.Pos{}, true},
	}
	for _, tt := range tests {
		got, err := parsePos(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePos(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePos(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
