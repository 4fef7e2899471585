// Package wheel holds the spin core: outcome selection, classification and
// the per-viewer spin session state machine.
package wheel

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"spinly/internal/models"
	"spinly/internal/types"
)

const (
	minExtraRevolutions = 2
	maxExtraRevolutions = 5

	// SpinDuration is how long the client animates toward the target.
	SpinDuration = 3 * time.Second
)

// Direction of the visual spin.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	if d == CounterClockwise {
		return "counterclockwise"
	}
	return "clockwise"
}

// Rand is the random source used by Select. Sessions may call it from many
// goroutines at once, so it must be safe for concurrent use; wrap sources
// that are not, such as *rand.Rand, with LockedRand.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) Intn(n int) int   { return rand.Intn(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand uses the goroutine-safe top-level math/rand functions.
var DefaultRand Rand = globalRand{}

type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

// LockedRand serializes calls to r.
func LockedRand(r Rand) Rand {
	if _, ok := r.(*lockedRand); ok {
		return r
	}
	return &lockedRand{r: r}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Outcome is the selected index plus the cosmetic target the client animates to.
type Outcome struct {
	Index int `json:"index"`
	// SegmentStart and SegmentEnd bound the selected segment in degrees.
	SegmentStart float64 `json:"segmentStart"`
	SegmentEnd   float64 `json:"segmentEnd"`
	// Angle is the landing point inside the segment, in [SegmentStart, SegmentEnd).
	Angle       float64   `json:"angle"`
	Revolutions int       `json:"revolutions"`
	Direction   Direction `json:"direction"`
	// Rotation is Angle plus the extra revolutions in Direction; Rotation mod 360 == Angle.
	Rotation   float64 `json:"rotation"`
	DurationMS int64   `json:"durationMs"`
}

// Select picks the spin outcome uniformly from items. Quantity and IsWinner
// do not influence the pick.
func Select(items []models.Item, rnd Rand) (Outcome, error) {
	if err := checkItems(items); err != nil {
		return Outcome{}, err
	}
	if rnd == nil {
		rnd = DefaultRand
	}

	n := len(items)
	index := rnd.Intn(n)

	segment := 360.0 / float64(n)
	start := float64(index) * segment
	end := start + segment
	angle := start + rnd.Float64()*segment
	// Float64 is in [0,1) but rounding can still touch the upper bound.
	if angle >= end {
		angle = math.Nextafter(end, start)
	}

	revs := minExtraRevolutions + rnd.Intn(maxExtraRevolutions-minExtraRevolutions+1)
	dir := Clockwise
	if rnd.Intn(2) == 1 {
		dir = CounterClockwise
	}

	return Outcome{
		Index:        index,
		SegmentStart: start,
		SegmentEnd:   end,
		Angle:        angle,
		Revolutions:  revs,
		Direction:    dir,
		Rotation:     angle + float64(int(dir)*revs*360),
		DurationMS:   SpinDuration.Milliseconds(),
	}, nil
}

func checkItems(items []models.Item) error {
	if len(items) == 0 {
		return types.NewError(types.ErrInvalidInput, "no items to spin")
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return types.Errorf(types.ErrInvalidInput, "duplicate item id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
