package header

// Scale is the linear intensity mapping value = raw*Slope + Inter.
type Scale struct {
	Slope float64
	Inter float64
}

// Identity leaves raw values unchanged.
var Identity = Scale{Slope: 1}

// IsIdentity returns true if applying the scale is a no-op.
func (s Scale) IsIdentity() bool {
	return s.Slope == 1 && s.Inter == 0
}

// Apply maps a raw stored value to its physical value.
func (s Scale) Apply(raw float64) float64 {
	return raw*s.Slope + s.Inter
}

// Invert maps a physical value back to the raw value to store.
func (s Scale) Invert(v float64) float64 {
	if s.Slope == 0 {
		return v
	}
	return (v - s.Inter) / s.Slope
}
