package tracereader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func stubConverter(t *testing.T, output string, err error) {
	t.Helper()
	orig := runConverter
	runConverter = func(ctx context.Context, traceDir string) (string, error) {
		return output, err
	}
	t.Cleanup(func() { runConverter = orig })
}

func TestReadDir_ParsesEvents(t *testing.T) {
	dir := t.TempDir()
	stubConverter(t, sampleLine+"\n\n[1700000000.000000456] (+0.000000333) buildhost ros2:rclcpp_publish: { cpu_id = 1 }, { procname = \"test_publisher\", vpid = 4242, vtid = 4243 }, { message = 0x7F0000002000 }\n", nil)

	events, err := ReadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Name != "ros2:rcl_publish" || events[1].Name != "ros2:rclcpp_publish" {
		t.Errorf("Unexpected names %v", EventNames(events))
	}
	if !AreOrdered(events[0], events[1]) {
		t.Error("Expected stream order to be preserved")
	}
}

func TestReadDir_SkipsUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	stubConverter(t, "warning: something odd\n"+sampleLine+"\n", nil)

	events, err := ReadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Expected malformed line to be skipped, got %d events", len(events))
	}
}

func TestReadDir_MissingDirectory(t *testing.T) {
	stubConverter(t, "", nil)
	if _, err := ReadDir(context.Background(), "/does/not/exist"); err == nil {
		t.Error("Expected error for missing trace directory")
	}
}

func TestReadDir_ConverterFailure(t *testing.T) {
	dir := t.TempDir()
	stubConverter(t, "", errors.New("babeltrace2 exploded"))
	if _, err := ReadDir(context.Background(), dir); err == nil {
		t.Error("Expected converter failure to propagate")
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	traceDir := filepath.Join(dir, "session-test")
	if err := os.MkdirAll(filepath.Join(traceDir, "ust", "uid"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Cleanup(traceDir); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(traceDir); !os.IsNotExist(err) {
		t.Error("Expected trace directory to be removed")
	}
}

func TestCleanup_RefusesRoot(t *testing.T) {
	if err := Cleanup("/"); err == nil {
		t.Error("Expected Cleanup to refuse the filesystem root")
	}
	if err := Cleanup(""); err == nil {
		t.Error("Expected Cleanup to refuse the empty path")
	}
}
