package restaurant

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"moms-kitchen/internal/restaurant/app/core"
	xerrors "moms-kitchen/internal/xpkg/errors"
)

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"--port=8080", "--board-id=counter", "--config-path=board.yaml"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if p.boardParams.Port != 8080 || p.boardParams.BoardID != "counter" || p.configPath != "board.yaml" {
		t.Errorf("params = %+v %+v", p, p.boardParams)
	}

	if _, err := parseParams([]string{"--help"}); !errors.Is(err, xerrors.ErrHelp) {
		t.Errorf("--help = %v", err)
	}
	if _, err := parseParams([]string{"--port=abc"}); !errors.Is(err, xerrors.ErrParseCmd) {
		t.Errorf("bad port = %v", err)
	}
}

func TestValidateParams(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	tests := []struct {
		name    string
		port    int
		boardID string
		wantErr error
		anyErr  bool
	}{
		{"ok", 3000, "b1", nil, false},
		{"zero port", 0, "b1", nil, true},
		{"port too large", 70000, "b1", nil, true},
		{"empty board id", 3000, "", core.ErrFieldIsEmpty, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &params{boardParams: &core.BoardParams{Port: tt.port, BoardID: tt.boardID}, configPath: missing}
			err := validateParams(p)
			if tt.anyErr != (err != nil) {
				t.Fatalf("err = %v, want error %v", err, tt.anyErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && p.cfg == nil {
				t.Error("config not loaded")
			}
		})
	}
}

func TestValidateParamsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := &params{boardParams: &core.BoardParams{Port: 3000, BoardID: "b1"}, configPath: path}
	if err := validateParams(p); err == nil {
		t.Error("expected an error for a malformed config file")
	}
}

func TestDefaultBoardID(t *testing.T) {
	if defaultBoardID() == "" {
		t.Error("empty default board id")
	}
}
