package simulator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/andreiluca/fraudwatch/internal/normalize"
)

var (
	merchants = []string{
		"fraud_Kirlin and Sons", "Rippin, Kub and Mann", "Heller, Gutmann and Zieme",
		"Lind-Buckridge", "Kiehn Inc", "Beier-Hyatt", "Schmitt-Harber", "Kerluke-Abshire",
	}
	categories = []string{
		"grocery_pos", "gas_transport", "shopping_net", "misc_net",
		"entertainment", "gambling", "cash_advance", "food_dining",
	}
	cities = []struct {
		city  string
		state string
		lat   float64
		lon   float64
	}{
		{"Columbia", "SC", 34.0007, -81.0348},
		{"Altonah", "UT", 40.3207, -110.4367},
		{"Bellmore", "NY", 40.6689, -73.5271},
		{"Titusville", "FL", 28.6122, -80.8076},
		{"Falmouth", "MI", 44.2509, -85.0172},
	}
	firstNames = []string{"Jennifer", "Stephanie", "Edward", "Jeremy", "Tyler", "Ana", "Misty"}
	lastNames  = []string{"Banks", "Gill", "Sanchez", "White", "Garcia", "Williams", "Long"}
)

// Generator produces synthetic raw transaction payloads shaped like the
// heterogeneous producers the normalizer handles: most carry ids and clean
// fields, a share arrive enveloped, id-less, or with a detector probability.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. A zero seed means a time-based one.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Next returns one synthetic payload.
func (g *Generator) Next() normalize.RawPayload {
	place := cities[g.rng.Intn(len(cities))]
	amount := g.amount()

	payload := normalize.RawPayload{
		"transaction_id":        uuid.NewString(),
		"trans_num":             fmt.Sprintf("%08x", g.rng.Uint32()),
		"amount":                amount,
		"trans_date_trans_time": time.Now().UTC().Format("2006-01-02 15:04:05"),
		"merchant":              merchants[g.rng.Intn(len(merchants))],
		"category":              categories[g.rng.Intn(len(categories))],
		"city":                  place.city,
		"state":                 place.state,
		"lat":                   place.lat,
		"long":                  place.lon,
		"first":                 firstNames[g.rng.Intn(len(firstNames))],
		"last":                  lastNames[g.rng.Intn(len(lastNames))],
		"gender":                []string{"F", "M"}[g.rng.Intn(2)],
		"dob":                   g.dob(),
	}

	// Roughly a quarter carry an upstream detector score.
	if g.rng.Float64() < 0.25 {
		payload["fraud_probability"] = g.rng.Float64() * 0.3
	}
	// A few arrive without any identifier, exercising id generation.
	if g.rng.Float64() < 0.05 {
		delete(payload, "transaction_id")
	}
	// And a few come wrapped in a data envelope.
	if g.rng.Float64() < 0.10 {
		payload = normalize.RawPayload{"data": map[string]any(payload)}
	}

	return payload
}

// amount skews small with an occasional large outlier, so the dashboard sees
// all three statuses.
func (g *Generator) amount() float64 {
	if g.rng.Float64() < 0.08 {
		return 500 + g.rng.Float64()*1500
	}
	return 1 + g.rng.Float64()*400
}

func (g *Generator) dob() string {
	year := 1940 + g.rng.Intn(65)
	month := 1 + g.rng.Intn(12)
	day := 1 + g.rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
