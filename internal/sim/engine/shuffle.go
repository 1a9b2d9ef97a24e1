package engine

import (
	"math/rand/v2"

	"alife.ai/internal/sim/world"
)

// Shuffler decides the order in which agents act within a turn.
type Shuffler interface {
	Shuffle(agents []*world.Agent)
}

// EntropyShuffler draws a fresh order from the runtime's random source every turn.
type EntropyShuffler struct{}

func (EntropyShuffler) Shuffle(agents []*world.Agent) {
	rand.Shuffle(len(agents), func(i, j int) { agents[i], agents[j] = agents[j], agents[i] })
}

// SeededShuffler produces a reproducible sequence of orders.
type SeededShuffler struct {
	rng *rand.Rand
}

func NewSeededShuffler(seed uint64) *SeededShuffler {
	return &SeededShuffler{rng: rand.New(rand.NewPCG(seed, ^seed))}
}

func (s *SeededShuffler) Shuffle(agents []*world.Agent) {
	s.rng.Shuffle(len(agents), func(i, j int) { agents[i], agents[j] = agents[j], agents[i] })
}

// ShuffleFunc adapts a function to Shuffler.
type ShuffleFunc func(agents []*world.Agent)

func (f ShuffleFunc) Shuffle(agents []*world.Agent) { f(agents) }
