package effects

// SliderMax is the top of the single-layer speed slider.
const SliderMax = 60.0

// SpeedFromSlider converts the single-layer "jiggle-speed" slider value into
// a clock multiplier. The lower 40% of the slider covers [0, 1], the rest
// ramps faster.
func SpeedFromSlider(v float64) float64 {
	n := v / SliderMax
	if n <= 0.4 {
		return n * 2.5
	}
	return 1 + (n-0.4)*3
}

// SliderFromSpeed inverts SpeedFromSlider.
func SliderFromSpeed(m float64) float64 {
	var n float64
	if m <= 1 {
		n = m / 2.5
	} else {
		n = 0.4 + (m-1)/3
	}
	return n * SliderMax
}
