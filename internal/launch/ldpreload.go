package launch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/logger"
)

// standardLibDirs are searched after LD_LIBRARY_PATH when locating a shared
// library by name.
var standardLibDirs = []string{
	"/usr/local/lib",
	"/usr/lib",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/lib",
	"/lib/x86_64-linux-gnu",
}

// LdPreload arranges for a shared library to be preloaded into every
// subsequently launched process. A library that cannot be found is a warning
// rather than an error: the trace is still useful without the extra
// instrumentation.
type LdPreload struct {
	LibName string
}

func (a *LdPreload) Execute(ctx context.Context, lctx *Context) error {
	path, found := FindLibrary(a.LibName)
	if !found {
		logger.Warn("Preload library not found; continuing without it",
			zap.String("library", a.LibName))
		return nil
	}
	lctx.AppendEnv("LD_PRELOAD", ":", path)
	logger.Debug("Preload library registered",
		zap.String("library", a.LibName),
		zap.String("path", path))
	return nil
}

// FindLibrary resolves a shared library name to a full path, searching
// LD_LIBRARY_PATH first and common system library directories after. A name
// that is already a path is checked directly.
func FindLibrary(name string) (string, bool) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if fileExists(name) {
			return name, true
		}
		return "", false
	}
	var dirs []string
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		dirs = append(dirs, filepath.SplitList(ldPath)...)
	}
	dirs = append(dirs, standardLibDirs...)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
