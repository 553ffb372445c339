package resilience

import (
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoKeys is returned by an empty KeyPool.
var ErrNoKeys = eris.New("resilience: no credentials configured")

type keyState struct {
	key      string
	failedAt time.Time
	failures int
}

// KeyPool rotates API credentials round-robin. A key that reports a
// failure sits out for the cooldown; when every key is cooling down the
// least recently failed one is handed out.
type KeyPool struct {
	mu       sync.Mutex
	keys     []keyState
	next     int
	cooldown time.Duration
	now      func() time.Time
}

// NewKeyPool builds a pool from keys, dropping blanks and duplicates.
func NewKeyPool(keys []string, cooldown time.Duration) *KeyPool {
	p := &KeyPool{cooldown: cooldown, now: time.Now}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.keys = append(p.keys, keyState{key: k})
	}
	return p
}

// Len returns the number of usable keys.
func (p *KeyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Acquire returns the next key to use.
func (p *KeyPool) Acquire() (string, error) {
	if p.Len() == 0 {
		return "", ErrNoKeys
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := len(p.keys)
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		ks := &p.keys[idx]
		if ks.failedAt.IsZero() || now.Sub(ks.failedAt) >= p.cooldown {
			p.next = (idx + 1) % n
			return ks.key, nil
		}
	}

	oldest := 0
	for i := 1; i < n; i++ {
		if p.keys[i].failedAt.Before(p.keys[oldest].failedAt) {
			oldest = i
		}
	}
	p.next = (oldest + 1) % n
	return p.keys[oldest].key, nil
}

// ReportFailure starts the cooldown for key.
func (p *KeyPool) ReportFailure(key string) {
	p.update(key, func(ks *keyState) {
		ks.failedAt = p.now()
		ks.failures++
	})
}

// ReportSuccess clears the failure state of key.
func (p *KeyPool) ReportSuccess(key string) {
	p.update(key, func(ks *keyState) {
		ks.failedAt = time.Time{}
		ks.failures = 0
	})
}

// Failures returns how many consecutive failures key has reported.
func (p *KeyPool) Failures(key string) int {
	var n int
	p.update(key, func(ks *keyState) { n = ks.failures })
	return n
}

func (p *KeyPool) update(key string, fn func(*keyState)) {
	if p.Len() == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.keys {
		if p.keys[i].key == key {
			fn(&p.keys[i])
			return
		}
	}
}
