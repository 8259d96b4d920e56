package diag

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger. All diagnostic text goes to stderr.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "bender",
})

// SetDebug toggles debug-level output.
func SetDebug(on bool) {
	if on {
		Logger.SetLevel(log.DebugLevel)
	} else {
		Logger.SetLevel(log.InfoLevel)
	}
}

var (
	warnMu   sync.Mutex
	warnSeen = map[string]bool{}
)

// Warnf emits a warning once per formatted message. Repeated occurrences of
// the same logical issue are suppressed.
func Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	warnMu.Lock()
	seen := warnSeen[msg]
	warnSeen[msg] = true
	warnMu.Unlock()
	if seen {
		return
	}
	Logger.Warn(msg)
}

// WarnLfsMissing emits warning W33: the repository uses git-lfs but the
// binary is not installed. Pointer files remain in the checkout.
func WarnLfsMissing(url string) {
	Warnf("W33: repository %s uses git-lfs but the git-lfs binary is not installed; large files remain as pointers", url)
}

// WarnNameMismatch emits a warning when a manifest's declared name disagrees
// with the key under which the package was referenced. The lookup key wins.
func WarnNameMismatch(key, declared string) {
	Warnf("package %q declares its name as %q; using %q", key, declared, key)
}

// ResetWarnings clears the dedup set. Intended for tests.
func ResetWarnings() {
	warnMu.Lock()
	warnSeen = map[string]bool{}
	warnMu.Unlock()
}
