// fingerprint.go identifies error signals for duplicate suppression and
// grouping.

package artemis

import (
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// DedupKey identifies an error signal: kind, message and origin.
type DedupKey struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
}

// Fingerprint returns a stable hash of the key for grouping reports across
// processes. The key fields are length-prefixed so adjacent fields cannot
// run together.
func (k DedupKey) Fingerprint() string {
	var b strings.Builder
	for _, part := range []string{strconv.Itoa(int(k.Kind)), k.Message, k.File, strconv.Itoa(k.Line)} {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// Deduplicator remembers error signals already reported by this process.
// The list only grows; it lives as long as the process does.
type Deduplicator struct {
	mu   sync.Mutex
	seen []DedupKey
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// IsNovel reports whether key has not been recorded yet.
func (d *Deduplicator) IsNovel(key DedupKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.novel(key)
}

// Record remembers key.
func (d *Deduplicator) Record(key DedupKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, key)
}

// Observe records key and reports whether it was novel, as one step.
func (d *Deduplicator) Observe(key DedupKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.novel(key) {
		return false
	}
	d.seen = append(d.seen, key)
	return true
}

// Len returns the number of recorded keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Deduplicator) novel(key DedupKey) bool {
	for _, s := range d.seen {
		if s == key {
			return false
		}
	}
	return true
}
