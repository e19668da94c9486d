package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tia/internal/analysis"
	"tia/internal/predict"
	"tia/internal/version"
)

func samplePredictResponse() *PredictResponseCLI {
	return &PredictResponseCLI{
		TiaVersion: "0.0.0",
		AnalysisID: "0123456789abcdef0123456789abcdef",
		Predictions: []predict.Prediction{
			{Test: "com.example.FooTest", Decision: predict.Skip, Reason: predict.NoChange},
			{Test: "com.example.BarTest", Decision: predict.Execute, Reason: predict.ChangeInCoveredUnit, Detail: "com.example.Bar"},
		},
		Stats: predict.StatsSnapshot{
			Total:     2,
			Skipped:   1,
			Executed:  1,
			ByReason:  map[predict.Reason]int{predict.NoChange: 1, predict.ChangeInCoveredUnit: 1},
			SkipRatio: 0.5,
		},
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatResponse_Structured(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   []string
	}{
		{FormatJSON, []string{`"test": "com.example.FooTest"`, `"reason": "CHANGE_IN_COVERED_UNIT"`, `"skipRatio": 0.5`}},
		{FormatYAML, []string{"test: com.example.FooTest", "reason: CHANGE_IN_COVERED_UNIT", "skipRatio: 0.5"}},
		{FormatTOML, []string{"[[predictions]]", `test = "com.example.FooTest"`, `detail = "com.example.Bar"`, "skipRatio = 0.5"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			out, err := FormatResponse(samplePredictResponse(), tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestFormatPredictHuman(t *testing.T) {
	out, err := FormatResponse(samplePredictResponse(), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"0123456789ab", "SKIP", "EXECUTE", "com.example.Bar)", "2 tests: 1 skipped, 1 executed (50.0% skipped)"} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}

	resp := samplePredictResponse()
	resp.AnalysisID = ""
	out, _ = FormatResponse(resp, FormatHuman)
	if !strings.Contains(out, "No analysis available") {
		t.Errorf("expected a notice about the missing analysis:\n%s", out)
	}
}

func TestFormatStatusHuman(t *testing.T) {
	verified := &StatusResponseCLI{TiaVersion: "1.0.0", Backend: "folder", ID: "abcdef0123456789", Verified: true, Units: 4, Tests: 2, Failed: 1}
	out := formatStatusHuman(verified)
	if !strings.Contains(out, "verified") || !strings.Contains(out, "abcdef012345") || !strings.Contains(out, "4 units, 2 tests (1 failed") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	broken := &StatusResponseCLI{TiaVersion: "1.0.0", Backend: "folder", Pointer: "abcdef0123456789", Problem: "stored analysis does not match its id"}
	out = formatStatusHuman(broken)
	if !strings.Contains(out, "unusable") || !strings.Contains(out, "does not match") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	empty := formatStatusHuman(&StatusResponseCLI{TiaVersion: "1.0.0", Backend: "folder"})
	if !strings.Contains(empty, "none recorded yet") {
		t.Errorf("unexpected status output:\n%s", empty)
	}
}

func TestFormatHuman_Version(t *testing.T) {
	out, err := FormatResponse(version.Current(), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "tia "+version.Version) {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestConvertAnalysis(t *testing.T) {
	registry := analysis.NewRegistry([]analysis.CompiledUnit{
		{Name: "com.example.FooTest", Path: "com/example/FooTest.class", OutputFolder: "test", Hash: "2"},
		{Name: "com.example.Foo", Path: "com/example/Foo.class", OutputFolder: "main", Hash: "1"},
	})
	fooTest := registry.IDsByName("com.example.FooTest")[0]
	foo := registry.IDsByName("com.example.Foo")[0]
	test, err := analysis.NewAnalyzedTest(fooTest, analysis.NewTagSet(analysis.Passed), []int{foo, fooTest}, "ref-1")
	if err != nil {
		t.Fatal(err)
	}
	tia, err := analysis.New(registry, []analysis.AnalyzedTest{test})
	if err != nil {
		t.Fatal(err)
	}

	resp := convertAnalysis(tia)
	if resp.ID != tia.ID() || len(resp.Units) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	want := ShowTestCLI{
		Name:         "com.example.FooTest",
		Tags:         []string{"PASSED"},
		Covered:      []string{"com.example.Foo", "com.example.FooTest"},
		ExecutionRef: "ref-1",
	}
	if len(resp.Tests) != 1 || !reflect.DeepEqual(resp.Tests[0], want) {
		t.Errorf("got %+v, want %+v", resp.Tests, want)
	}
}

func TestReadUnitList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.txt")
	content := "# covered by FooTest\ncom.example.Foo\n\n  com.example.Bar  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readUnitList(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"com.example.Foo", "com.example.Bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := readUnitList(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
