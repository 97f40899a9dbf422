package analyzer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"
)

// StubMode selects how StubModel derives its scores.
type StubMode string

const (
	// StubDeterministic hashes the head of the file so a file always scores the same.
	StubDeterministic StubMode = "deterministic"
	// StubRandom draws scores from a seeded source.
	StubRandom StubMode = "random"
)

const stubSampleBytes = 64 << 10

var stubCategories = []string{"violence", "nudity", "language", "drugs", "self_harm"}

// StubModel synthesizes classification results for demonstration and tests.
type StubModel struct {
	Mode StubMode
	// FlagThreshold is the confidence at or above which a file is flagged.
	FlagThreshold int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStubModel builds a stub. A zero seed in random mode seeds from the clock.
func NewStubModel(mode StubMode, flagThreshold int, seed int64) *StubModel {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StubModel{
		Mode:          mode,
		FlagThreshold: flagThreshold,
		rng:           rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
	}
}

func (m *StubModel) Name() string {
	return "stub-" + string(m.Mode)
}

func (m *StubModel) Classify(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var score uint64
	switch m.Mode {
	case StubRandom:
		if _, err := os.Stat(path); err != nil {
			return Result{}, fmt.Errorf("stat media: %w", err)
		}
		m.mu.Lock()
		score = m.rng.Uint64()
		m.mu.Unlock()
	case StubDeterministic, "":
		sum, err := hashHead(path)
		if err != nil {
			return Result{}, err
		}
		score = sum
	default:
		return Result{}, fmt.Errorf("unknown stub mode %q", m.Mode)
	}

	confidence := int(score % 101)
	result := Result{
		Classification: ClassificationSafe,
		Confidence:     100 - confidence,
		Flags:          []string{},
		Details:        map[string]any{"score": confidence},
	}
	if confidence >= m.FlagThreshold {
		result.Classification = ClassificationFlagged
		result.Confidence = confidence
		result.Flags = append(result.Flags, stubCategories[(score>>8)%uint64(len(stubCategories))])
	}
	result.AnalyzedAt = time.Now().UTC()
	return result, nil
}

func hashHead(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	h := fnv.New64a()
	n, err := io.Copy(h, io.LimitReader(file, stubSampleBytes))
	if err != nil {
		return 0, fmt.Errorf("read media: %w", err)
	}
	if n == 0 {
		return 0, errors.New("media file is empty")
	}
	return h.Sum64(), nil
}
