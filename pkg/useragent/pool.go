package useragent

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
)

// DefaultPool is a set of current desktop browser User-Agents. Search result
// pages vary their markup by client, so these all target engines that get
// the full desktop layout.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36 Edg/128.0.0.0",
}

// Rotation selects how Next walks the pool.
type Rotation string

const (
	Sequential Rotation = "sequential"
	Random     Rotation = "random"
)

// ParseRotation maps a config string to a Rotation; empty means Sequential.
func ParseRotation(s string) (Rotation, error) {
	switch r := Rotation(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Sequential, nil
	case Sequential, Random:
		return r, nil
	default:
		return "", fmt.Errorf("useragent: unknown rotation %q", s)
	}
}

// Pool hands out User-Agents. It is safe for concurrent use.
type Pool struct {
	uas      []string
	rotation Rotation
	counter  atomic.Uint64
}

// NewPool creates a pool over uas, falling back to DefaultPool when uas is
// empty. Blank entries are dropped.
func NewPool(uas []string, rotation Rotation) *Pool {
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			copied = append(copied, ua)
		}
	}
	if len(copied) == 0 {
		copied = append(copied, DefaultPool...)
	}
	if rotation == "" {
		rotation = Sequential
	}
	return &Pool{uas: copied, rotation: rotation}
}

// Next returns a User-Agent according to the pool's rotation.
func (p *Pool) Next() string {
	if p.rotation == Random {
		return p.GetRandom()
	}
	return p.GetSequential()
}

// GetSequential returns the next User-Agent round-robin.
func (p *Pool) GetSequential() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// GetRandom returns a uniformly chosen User-Agent.
func (p *Pool) GetRandom() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.GetSequential()
	}
	return p.uas[n.Int64()]
}

// Len returns the pool size.
func (p *Pool) Len() int { return len(p.uas) }
