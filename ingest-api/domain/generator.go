package domain

import (
	"fmt"
	"iter"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var (
	eventTypes = []string{"PageView", "AddToCart", "Purchase", "Search", "Review"}
	categories = []string{"Electronics", "Clothing", "Books", "Home", "Sports"}
	sources    = []string{"Web", "Mobile", "API"}
)

// Generator produces synthetic e-commerce events for load tests and demos.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Event returns one randomized, normalized event.
func (g *Generator) Event() Event {
	price := math.Round((g.rng.Float64()*500+10)*100) / 100
	ev := Event{
		EventID:    uuid.NewString(),
		EventType:  eventTypes[g.rng.Intn(len(eventTypes))],
		UserID:     fmt.Sprintf("user_%d", g.rng.Intn(999)+1),
		SessionID:  uuid.NewString(),
		Timestamp:  g.now().UTC(),
		ProductID:  fmt.Sprintf("product_%d", g.rng.Intn(499)+1),
		CategoryID: categories[g.rng.Intn(len(categories))],
		Price:      price,
		Quantity:   g.rng.Intn(4) + 1,
		Currency:   "USD",
		Source:     sources[g.rng.Intn(len(sources))],
	}
	return ev
}

// PageView returns a synthetic page view event.
func (g *Generator) PageView() Event {
	ev := g.Event()
	ev.EventType = "PageView"
	return ev
}

// Bulk returns a lazy sequence of count synthetic events. The sequence is
// finite and can be ranged over more than once; each pass yields fresh events.
func (g *Generator) Bulk(count int) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := 0; i < count; i++ {
			if !yield(g.Event()) {
				return
			}
		}
	}
}
