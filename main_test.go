package main

import (
	"reflect"
	"testing"
)

func TestSplitMode(t *testing.T) {
	tests := []struct {
		args     []string
		wantMode []string
		wantRest []string
	}{
		{[]string{"--mode=board", "--port=3000"}, []string{"--mode=board"}, []string{"--port=3000"}},
		{[]string{"--port=3000", "--mode", "seed-menu", "--file=m.yaml"}, []string{"--mode", "seed-menu"}, []string{"--port=3000", "--file=m.yaml"}},
		{[]string{"--help"}, nil, []string{"--help"}},
		{[]string{"--mode"}, []string{"--mode"}, nil},
	}
	for _, tt := range tests {
		mode, rest := splitMode(tt.args)
		if !reflect.DeepEqual(mode, tt.wantMode) || !reflect.DeepEqual(rest, tt.wantRest) {
			t.Errorf("splitMode(%v) = %v, %v; want %v, %v", tt.args, mode, rest, tt.wantMode, tt.wantRest)
		}
	}
}
