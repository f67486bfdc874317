package remote

import (
	"math/rand/v2"
	"sync"
	"time"
)

const tidAlphabet = "234567abcdefghijklmnopqrstuvwxyz"

// TIDClock hands out timestamp identifiers: 53 bits of microseconds and a
// 10 bit clock id, base32-sortable encoded. Values from one clock strictly
// increase.
type TIDClock struct {
	mu      sync.Mutex
	clockID uint64
	last    uint64
	now     func() time.Time
}

func NewTIDClock() *TIDClock {
	return &TIDClock{clockID: rand.Uint64N(1024), now: time.Now}
}

func (c *TIDClock) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	micros := uint64(c.now().UnixMicro())
	if micros <= c.last {
		micros = c.last + 1
	}
	c.last = micros
	return encodeTID((micros&(1<<53-1))<<10 | c.clockID)
}

func encodeTID(v uint64) string {
	var buf [13]byte
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = tidAlphabet[v&31]
		v >>= 5
	}
	return string(buf[:])
}
