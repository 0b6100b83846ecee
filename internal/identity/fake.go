package identity

import (
	"fmt"
	"strings"
	"sync"
)

// Fake is a deterministic Provider for tests. Suffixes are served from the
// queue given to NewFake, then synthesized from a counter.
type Fake struct {
	mu       sync.Mutex
	ids      int
	seq      int
	suffixes []string
}

// NewFake returns a Fake that hands out the given suffixes first.
func NewFake(suffixes ...string) *Fake {
	return &Fake{suffixes: append([]string(nil), suffixes...)}
}

// NewID returns id-1, id-2, ...
func (f *Fake) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids++
	return fmt.Sprintf("id-%d", f.ids)
}

// Suffix pops the next queued suffix, padded or cut to n characters.
func (f *Fake) Suffix(n int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s string
	if len(f.suffixes) > 0 {
		s = f.suffixes[0]
		f.suffixes = f.suffixes[1:]
	} else {
		f.seq++
		s = fmt.Sprintf("%0*d", n, f.seq)
	}
	if len(s) < n {
		s += strings.Repeat("Z", n-len(s))
	}
	return s[:n]
}

// Sequence returns SEQ1, SEQ2, ...
func (f *Fake) Sequence() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("SEQ%d", f.seq)
}
