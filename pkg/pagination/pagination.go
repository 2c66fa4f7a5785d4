package pagination

const (
	// DefaultTake is the standard page size when take is not provided.
	DefaultTake = 25
	// MaxTake caps how many rows any window query can request.
	MaxTake = 100
)

// Window holds offset pagination inputs from controllers or services.
type Window struct {
	Skip int
	Take int
}

// Normalize enforces non-negative skip and the default/maximum take.
func (w Window) Normalize() Window {
	if w.Skip < 0 {
		w.Skip = 0
	}
	if w.Take <= 0 {
		w.Take = DefaultTake
	}
	if w.Take > MaxTake {
		w.Take = MaxTake
	}
	return w
}
