package notifysvc

import (
	"log"
	"sync"

	"github.com/trezcool/kozi/core"
)

type consoleNotifier struct {
	std *log.Logger
}

var _ core.Notifier = (*consoleNotifier)(nil)

// NewConsoleNotifier prints user-visible messages to the terminal; it
// is the CLI's stand-in for the SPA's toast notifications.
func NewConsoleNotifier(std *log.Logger) core.Notifier {
	return &consoleNotifier{std: std}
}

func (n consoleNotifier) Info(msg string)  { n.std.Println(msg) }
func (n consoleNotifier) Warn(msg string)  { n.std.Println("! " + msg) }
func (n consoleNotifier) Error(msg string) { n.std.Println("!! " + msg) }

// Mock records notifications so tests can assert on what the user was
// shown, and how many times.
type Mock struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
	Errors   []string
}

var _ core.Notifier = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (n *Mock) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Infos = append(n.Infos, msg)
}

func (n *Mock) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Warnings = append(n.Warnings, msg)
}

func (n *Mock) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, msg)
}

// All returns every recorded message in severity buckets.
func (n *Mock) All() (infos, warnings, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Infos...),
		append([]string(nil), n.Warnings...),
		append([]string(nil), n.Errors...)
}
