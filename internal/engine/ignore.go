package engine

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// IgnoreList is the echo-suppression multiset of spec §4.6: a set of
// predicted messages the handler expects its own outbound mutations to
// produce on the observing watchers. It is a multiset, not a set — two
// identical predicted echoes must match two observed messages — and it is
// never aged or bounded, per spec §9's explicit design note: a mismatched
// prediction is a latent leak, treated as a bug in the handler's echo
// model rather than something to paper over with a TTL.
//
// Safe for concurrent use, though spec §5 notes the single-threaded handler
// invariant is what actually keeps this lock-free in principle; the mutex
// here is cheap insurance. The handler (Push, Consume) and the Engine (Len,
// WarnLeaked) are its only callers; the watchers never touch it.
type IgnoreList struct {
	mu      sync.Mutex
	entries []ignoreEntry
	logger  *slog.Logger
}

type ignoreEntry struct {
	msg  OperationalMessage
	corr string
}

// NewIgnoreList creates an empty ignore list.
func NewIgnoreList(logger *slog.Logger) *IgnoreList {
	return &IgnoreList{logger: logger}
}

// Push records a predicted echo. corr is a correlation id logged alongside
// both the push and the eventual consume (or the absence of one), to make
// leaked predictions observable.
func (l *IgnoreList) Push(msg OperationalMessage) {
	corr := uuid.NewString()

	l.mu.Lock()
	l.entries = append(l.entries, ignoreEntry{msg: msg, corr: corr})
	l.mu.Unlock()

	l.logger.Debug("ignore list: pushed predicted echo",
		slog.String("message", msg.String()),
		slog.String("correlation_id", corr),
	)
}

// Consume removes and reports a single matching entry if one exists. A
// linear scan is sufficient: the list is short-lived by design (spec §9).
func (l *IgnoreList) Consume(msg OperationalMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.msg.Equal(msg) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)

			l.logger.Debug("ignore list: consumed matching echo",
				slog.String("message", msg.String()),
				slog.String("correlation_id", e.corr),
			)

			return true
		}
	}

	return false
}

// Len reports the number of unconsumed predictions, a leak-detection
// diagnostic exposed through Engine.IgnoreListLen.
func (l *IgnoreList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// WarnLeaked logs every still-unconsumed entry at Warn. Called on shutdown
// so a leaking echo model is visible in the logs rather than silently
// accumulating across restarts (a fresh ignore list is created per process,
// so leaked entries never actually persist — but a non-empty list at exit
// means some predicted echo never arrived).
func (l *IgnoreList) WarnLeaked() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		l.logger.Warn("ignore list: prediction never consumed",
			slog.String("message", e.msg.String()),
			slog.String("correlation_id", e.corr),
		)
	}
}
