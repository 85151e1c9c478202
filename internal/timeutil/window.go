package timeutil

// DefaultWindowRadius is the number of days kept on each side of today.
const DefaultWindowRadius = 7

// BuildWindow returns today-radius .. today+radius inclusive, ascending, with
// today at index radius. A negative radius is treated as zero.
func BuildWindow(today DateKey, radius int) []DateKey {
	if radius < 0 {
		radius = 0
	}
	window := make([]DateKey, 0, 2*radius+1)
	for offset := -radius; offset <= radius; offset++ {
		window = append(window, today.AddDays(offset))
	}
	return window
}

// IndexOf returns the position of d in window, or -1.
func IndexOf(window []DateKey, d DateKey) int {
	for i, key := range window {
		if key == d {
			return i
		}
	}
	return -1
}

// NearToFar orders window by distance from center, alternating after then
// before (center+1, center-1, center+2, ...). center itself is omitted.
func NearToFar(window []DateKey, center DateKey) []DateKey {
	idx := IndexOf(window, center)
	if idx < 0 {
		out := make([]DateKey, len(window))
		copy(out, window)
		return out
	}
	out := make([]DateKey, 0, len(window)-1)
	for step := 1; len(out) < len(window)-1; step++ {
		if after := idx + step; after < len(window) {
			out = append(out, window[after])
		}
		if before := idx - step; before >= 0 {
			out = append(out, window[before])
		}
	}
	return out
}
