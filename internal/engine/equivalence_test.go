package engine

import (
	"math/rand"
	"reflect"
	"testing"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/idgen"
)

// randomSeries generates a valid random walk series.
func randomSeries(rng *rand.Rand, n int) domain.Series {
	s := domain.Series{
		Open:  make([]float64, n),
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		close := open * (1 + (rng.Float64()-0.5)*0.04)
		high := open
		if close > high {
			high = close
		}
		high *= 1 + rng.Float64()*0.02
		low := open
		if close < low {
			low = close
		}
		low *= 1 - rng.Float64()*0.02
		s.Open[i], s.High[i], s.Low[i], s.Close[i] = open, high, low, close
		price = close
	}
	return s
}

// randomIntents generates intents with ids from the deterministic packing so
// every id is unique per (bar, param, role, kind, side) slot.
func randomIntents(rng *rand.Rand, bars int) []domain.OrderIntent {
	var intents []domain.OrderIntent
	paramIdx := int64(rng.Intn(50))
	used := make(map[int64]bool)

	count := 20 + rng.Intn(60)
	for len(intents) < count {
		createdBar := int64(rng.Intn(bars+1)) - 1
		role := domain.Role(rng.Intn(2))
		kind := domain.Kind(rng.Intn(2))
		side := domain.Side(rng.Intn(2))

		id := idgen.OrderID(createdBar, paramIdx, role, kind, side)
		if used[id] {
			continue
		}
		used[id] = true

		ttl := int64(rng.Intn(4)) // 0 (gtc) .. 3
		intents = append(intents, domain.OrderIntent{
			OrderID:    id,
			CreatedBar: createdBar,
			Role:       role,
			Kind:       kind,
			Side:       side,
			Price:      60 + rng.Float64()*80,
			Qty:        int32(1 + rng.Intn(5)),
			TTL:        ttl,
		})
	}
	return intents
}

func TestSimulate_ShuffleInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		bars := randomSeries(rng, 40+rng.Intn(40))
		intents := randomIntents(rng, bars.Len())

		for _, sim := range simulators() {
			base, err := sim.Simulate(bars, intents)
			if err != nil {
				t.Fatalf("trial %d %s: %v", trial, sim.Name(), err)
			}

			shuffled := make([]domain.OrderIntent, len(intents))
			copy(shuffled, intents)
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			got, err := sim.Simulate(bars, shuffled)
			if err != nil {
				t.Fatalf("trial %d %s shuffled: %v", trial, sim.Name(), err)
			}
			if !reflect.DeepEqual(base, got) {
				t.Fatalf("trial %d %s: fills depend on input order\nbase: %+v\ngot:  %+v",
					trial, sim.Name(), base, got)
			}
		}
	}
}

func TestSimulate_ReferenceBookBitExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		bars := randomSeries(rng, 30+rng.Intn(70))
		intents := randomIntents(rng, bars.Len())

		ref, err := (Reference{}).Simulate(bars, intents)
		if err != nil {
			t.Fatalf("trial %d reference: %v", trial, err)
		}
		fast, err := (Book{}).Simulate(bars, intents)
		if err != nil {
			t.Fatalf("trial %d book: %v", trial, err)
		}

		if !reflect.DeepEqual(ref, fast) {
			t.Fatalf("trial %d: implementations diverged\nreference: %+v\nbook:      %+v",
				trial, ref, fast)
		}
	}
}

func TestSimulate_ReferenceBookBitExact_GTCOnly(t *testing.T) {
	// The resident-book path is most load-bearing for gtc intents, so pin
	// it separately from the mixed-TTL sweep above.
	rng := rand.New(rand.NewSource(1234))

	for trial := 0; trial < 50; trial++ {
		bars := randomSeries(rng, 60)
		intents := randomIntents(rng, bars.Len())
		for i := range intents {
			intents[i].TTL = 0
		}

		ref, err := (Reference{}).Simulate(bars, intents)
		if err != nil {
			t.Fatalf("trial %d reference: %v", trial, err)
		}
		fast, err := (Book{}).Simulate(bars, intents)
		if err != nil {
			t.Fatalf("trial %d book: %v", trial, err)
		}
		if !reflect.DeepEqual(ref, fast) {
			t.Fatalf("trial %d: gtc divergence\nreference: %+v\nbook:      %+v", trial, ref, fast)
		}
	}
}

func BenchmarkReference(b *testing.B) {
	rng := rand.New(rand.NewSource(9))
	bars := randomSeries(rng, 2000)
	intents := randomIntents(rng, bars.Len())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := (Reference{}).Simulate(bars, intents); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBook(b *testing.B) {
	rng := rand.New(rand.NewSource(9))
	bars := randomSeries(rng, 2000)
	intents := randomIntents(rng, bars.Len())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := (Book{}).Simulate(bars, intents); err != nil {
			b.Fatal(err)
		}
	}
}
