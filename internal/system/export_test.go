package system

import (
	"testing"

	"github.com/tracelaunch/tracelaunch/internal/config"
)

func restoreBin(t *testing.T, bin string) {
	t.Helper()
	orig := config.LTTngBin
	config.LTTngBin = bin
	t.Cleanup(func() { config.LTTngBin = orig })
}
