package sample

// Downsample reduces a series to at most maxPoints elements.
// Uses simple decimation to reduce the number of points for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// Returns the destination slice (may be dst if reused, or a new slice if dst was too small).
// If len(series) <= maxPoints, copies all elements to dst.
func Downsample[T any](dst []T, series []T, maxPoints int) []T {
	if maxPoints <= 0 || len(series) <= maxPoints {
		// Need to copy everything
		if cap(dst) >= len(series) {
			dst = dst[:len(series)]
			copy(dst, series)
			return dst
		}
		// dst too small, allocate new
		result := make([]T, len(series))
		copy(result, series)
		return result
	}

	// Need to downsample
	if cap(dst) >= maxPoints {
		dst = dst[:0] // Reset length but keep capacity
	} else {
		dst = make([]T, 0, maxPoints)
	}

	// Calculate step size for decimation
	step := float64(len(series)) / float64(maxPoints)

	for i := 0; i < maxPoints; i++ {
		idx := int(float64(i) * step)
		if idx < len(series) {
			dst = append(dst, series[idx])
		}
	}

	return dst
}
