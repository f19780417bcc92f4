package order

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

const idPrefix = "ORD"

// IDGenerator hands out "ORD<unix millis>" ids that strictly increase, even when
// several orders are placed in the same millisecond or the clock steps back.
// One generator is shared by every ledger in a process.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return idPrefix + strconv.FormatInt(n, 10)
}

// Observe makes sure later ids sort after id. Ids that do not look like ours are ignored.
func (g *IDGenerator) Observe(id string) {
	n, ok := parseID(id)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.last {
		g.last = n
	}
}

func parseID(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, idPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
