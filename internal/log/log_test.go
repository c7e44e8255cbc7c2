package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetOutput_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer SetOutput(os.Stdout, "info")

	Issuance.Info().Str("symbol", "GLD").Msg("issued")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "issuance" || rec["symbol"] != "GLD" || rec["message"] != "issued" {
		t.Errorf("record = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "warn")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	if err := Init("info", true, path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer SetOutput(os.Stdout, "info")

	Wallet.Info().Msg("to file")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"wallet"`) {
		t.Errorf("file content = %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG").String() != "debug" {
		t.Error("level names are case-insensitive")
	}
	if parseLevel("nonsense").String() != "info" {
		t.Error("unknown levels fall back to info")
	}
}
