package telemetry

// Downsample decimates frames to at most maxPoints for display.
// It reuses dst when it has enough capacity and returns the resulting slice.
func Downsample(dst []Frame, frames []Frame, maxPoints int) []Frame {
	if len(frames) <= maxPoints {
		if cap(dst) >= len(frames) {
			dst = dst[:len(frames)]
			copy(dst, frames)
			return dst
		}
		result := make([]Frame, len(frames))
		copy(result, frames)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Frame, 0, maxPoints)
	}

	step := float64(len(frames)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(frames) {
			dst = append(dst, frames[idx])
		}
	}

	return dst
}
