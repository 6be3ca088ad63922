package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	p := NewPipeline(Config{MaxReviewCycles: 3, MaxQACycles: 2, SkipAfterMaxReview: true})
	p.Features["auth"] = &Feature{
		State:                StageBackendDev,
		RequiresBackendWork:  true,
		RequiresFrontendWork: true,
		History:              []HistoryEntry{},
		CurrentIssues:        []string{},
	}
	p.CurrentFeatureID = "auth"

	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CurrentFeatureID != "auth" {
		t.Errorf("CurrentFeatureID = %q, want %q", got.CurrentFeatureID, "auth")
	}
	f := got.Feature("auth")
	if f == nil {
		t.Fatal("feature auth missing after round-trip")
	}
	if f.State != StageBackendDev {
		t.Errorf("State = %q, want %q", f.State, StageBackendDev)
	}
	if got.Config.MaxReviewCycles != 3 {
		t.Errorf("MaxReviewCycles = %d, want 3", got.Config.MaxReviewCycles)
	}
	if !got.Config.SkipAfterMaxReview {
		t.Error("SkipAfterMaxReview should survive the round-trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	if err == nil {
		t.Fatal("expected error for missing state file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected os.IsNotExist error, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStore(path).Load()
	if err == nil {
		t.Fatal("expected error for malformed state file")
	}
	if os.IsNotExist(err) {
		t.Error("malformed file must not report as missing")
	}
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	blob := `{"currentFeatureId":"","features":{"x":{"state":"shipping_it","reviewCycleCount":0}},"config":{}}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStore(path).Load()
	if err == nil {
		t.Fatal("expected error for out-of-vocabulary stage")
	}
	if !strings.Contains(err.Error(), "unrecognized state") {
		t.Errorf("expected unrecognized-state error, got %v", err)
	}
}

func TestLoadRejectsDanglingCurrentFeature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	blob := `{"currentFeatureId":"ghost","features":{},"config":{}}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStore(path).Load()
	if err == nil {
		t.Fatal("expected error for dangling currentFeatureId")
	}
}

func TestSaveRejectsInvalidStage(t *testing.T) {
	s := newTestStore(t)

	p := NewPipeline(Config{})
	p.Features["x"] = &Feature{State: Stage("bogus")}

	if err := s.Save(p); err == nil {
		t.Fatal("expected error saving invalid stage")
	}
}

func TestStateFileShape(t *testing.T) {
	// The on-disk key names are a wire format consumed by other tools;
	// pin them.
	s := newTestStore(t)

	p := NewPipeline(Config{MaxReviewCycles: 3})
	p.Features["f1"] = &Feature{State: StagePending}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, key := range []string{
		`"currentFeatureId"`, `"features"`, `"config"`,
		`"state"`, `"reviewCycleCount"`, `"maxReviewCycles"`,
		`"maxQACycles"`, `"skipAfterMaxReview"`, `"skipAfterMaxQA"`,
		`"requiresBackendWork"`, `"requiresFrontendWork"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("state file missing key %s", key)
		}
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteAtomic(path, []byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"k":"v"}` {
		t.Errorf("content = %q, want %q", got, `{"k":"v"}`)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "out.json" {
			t.Errorf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestWriteAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := WriteAtomic(path, []byte("second")); err != nil {
		t.Fatalf("WriteAtomic overwrite: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
}

func TestStageClassification(t *testing.T) {
	tests := []struct {
		stage    Stage
		valid    bool
		terminal bool
		worker   bool
	}{
		{StagePending, true, false, false},
		{StageBackendDev, true, false, true},
		{StageBackendReview, true, false, true},
		{StageBackendReviewPassed, true, false, false},
		{StageBackendReviewFailed, true, false, false},
		{StageFrontendDev, true, false, true},
		{StageFrontendReview, true, false, true},
		{StageFrontendReviewPassed, true, false, false},
		{StageFrontendReviewFailed, true, false, false},
		{StageQATesting, true, false, true},
		{StageQAPassed, true, true, false},
		{StageQAIssuesBackend, true, false, false},
		{StageQAIssuesFrontend, true, false, false},
		{Stage("nope"), false, false, false},
	}
	for _, tc := range tests {
		if got := tc.stage.Valid(); got != tc.valid {
			t.Errorf("%s.Valid() = %v, want %v", tc.stage, got, tc.valid)
		}
		if got := tc.stage.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.stage, got, tc.terminal)
		}
		if got := tc.stage.WorkerStage(); got != tc.worker {
			t.Errorf("%s.WorkerStage() = %v, want %v", tc.stage, got, tc.worker)
		}
	}
}
