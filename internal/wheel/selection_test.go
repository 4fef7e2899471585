package wheel

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinly/internal/models"
	"spinly/internal/types"
)

// scriptedRand replays fixed values, then falls back to zero.
type scriptedRand struct {
	ints     []int
	floats   []float64
	intCalls int
}

func (r *scriptedRand) Intn(n int) int {
	r.intCalls++
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func testItems(n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{ID: string(rune('a' + i)), Name: string(rune('A' + i)), Quantity: i + 1}
	}
	return items
}

func TestSelect_RejectsEmptyAndDuplicates(t *testing.T) {
	_, err := Select(nil, DefaultRand)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))

	_, err = Select([]models.Item{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}, DefaultRand)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}

func TestSelect_VisualTarget(t *testing.T) {
	// index 2 of 4, offset halfway, 3 extra revolutions, counterclockwise
	rnd := &scriptedRand{ints: []int{2, 1, 1}, floats: []float64{0.5}}

	out, err := Select(testItems(4), rnd)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Index)
	assert.Equal(t, 180.0, out.SegmentStart)
	assert.Equal(t, 270.0, out.SegmentEnd)
	assert.Equal(t, 225.0, out.Angle)
	assert.Equal(t, 3, out.Revolutions)
	assert.Equal(t, CounterClockwise, out.Direction)
	assert.Equal(t, 225.0-3*360, out.Rotation)
	assert.Equal(t, SpinDuration.Milliseconds(), out.DurationMS)
}

func TestSelect_TargetLandsInSegment(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	items := testItems(7)

	for i := 0; i < 2000; i++ {
		out, err := Select(items, rnd)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, out.Revolutions, minExtraRevolutions)
		assert.LessOrEqual(t, out.Revolutions, maxExtraRevolutions)
		assert.GreaterOrEqual(t, out.Angle, out.SegmentStart)
		assert.Less(t, out.Angle, out.SegmentEnd)

		landed := math.Mod(out.Rotation, 360)
		if landed < 0 {
			landed += 360
		}
		assert.InDelta(t, out.Angle, landed, 1e-6)
	}
}

func TestSelect_UniformDistribution(t *testing.T) {
	const (
		n      = 5
		trials = 100000
	)
	rnd := rand.New(rand.NewSource(42))
	items := testItems(n)
	// Quantities differ wildly; they must not act as weights.
	items[0].Quantity = 1000
	items[0].IsWinner = true

	counts := make([]int, n)
	for i := 0; i < trials; i++ {
		out, err := Select(items, rnd)
		require.NoError(t, err)
		counts[out.Index]++
	}

	for idx, c := range counts {
		freq := float64(c) / trials
		assert.InDelta(t, 1.0/n, freq, 0.01, "index %d selected %d times", idx, c)
	}
}

func TestSelect_SingleItem(t *testing.T) {
	out, err := Select(testItems(1), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Index)
	assert.Equal(t, 360.0, out.SegmentEnd)
}

func TestLockedRand_SharedAcrossSessions(t *testing.T) {
	shared := LockedRand(rand.New(rand.NewSource(7)))
	assert.Same(t, shared, LockedRand(shared), "wrapping twice keeps one lock")

	items := testItems(4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSession(nil, WithRand(shared))
			for i := 0; i < 200; i++ {
				out, ok, err := s.Spin(items)
				if err != nil || !ok || out.Index < 0 || out.Index >= len(items) {
					t.Errorf("spin %d: index=%d ok=%t err=%v", i, out.Index, ok, err)
					return
				}
				if _, err := s.Settle(out.Index); err != nil {
					t.Errorf("settle %d: %v", i, err)
					return
				}
				<-s.LogResult()
				s.RevealComplete()
				s.Close()
			}
		}()
	}
	wg.Wait()
}
