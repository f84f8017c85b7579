// Package risk bands a dropout probability.
package risk

// Band is a coarse risk level.
type Band string

const (
	Low    Band = "Low"
	Medium Band = "Medium"
	High   Band = "High"
)

// Band boundaries; each is the inclusive lower edge of the next band.
const (
	MediumFrom = 0.30
	HighFrom   = 0.60
)

// Color returns the display color paired with the band.
func (b Band) Color() string {
	switch b {
	case Low:
		return "green"
	case Medium:
		return "orange"
	default:
		return "red"
	}
}

// Classify maps p to its band.
func Classify(p float64) Band {
	switch {
	case p < MediumFrom:
		return Low
	case p < HighFrom:
		return Medium
	default:
		return High
	}
}
