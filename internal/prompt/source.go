package prompt

import (
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

// Source hands out random prompts from one loaded corpus. Each session owns
// its own Source so the random stream can be seeded per session.
type Source struct {
	mu     sync.Mutex
	corpus Corpus
	rng    *rand.Rand
	log    *zap.Logger
}

func NewSource(rng *rand.Rand, logger *zap.Logger) *Source {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{rng: rng, log: logger}
}

// NewSeededSource is NewSource with a deterministic PCG stream.
func NewSeededSource(seed uint64, logger *zap.Logger) *Source {
	return NewSource(rand.New(rand.NewPCG(seed, seed)), logger)
}

// Load replaces the corpus with the one named by sourceID. Load failures are
// logged and replaced by the built-in fallback, so the returned corpus is
// never empty.
func (s *Source) Load(l Loader, sourceID string) Corpus {
	var (
		c   Corpus
		err error
	)
	if l != nil {
		c, err = l.Load(sourceID)
	} else {
		err = ErrEmptyCorpus
	}
	if err != nil || len(c) == 0 {
		s.log.Warn("using fallback corpus", zap.String("source", sourceID), zap.Error(err))
		c = Fallback(sourceID)
	}

	s.mu.Lock()
	s.corpus = c
	s.mu.Unlock()
	return c
}

func (s *Source) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.corpus) == 0 {
		return "", ErrEmptyCorpus
	}
	return s.corpus[s.rng.IntN(len(s.corpus))], nil
}

func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.corpus)
}
