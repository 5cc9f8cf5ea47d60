package beacon

import "gonum.org/v1/gonum/floats"

// SampleRing is a fixed-capacity circular buffer of RSSI samples.
type SampleRing struct {
	buf   []float64
	pos   int
	count int
}

// NewSampleRing creates a ring holding at most capacity samples.
func NewSampleRing(capacity int) *SampleRing {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleRing{buf: make([]float64, capacity)}
}

// Push adds a sample, overwriting the oldest once full.
func (r *SampleRing) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Mean returns the arithmetic mean of the held samples, or 0 if empty.
// Samples fill the buffer from index 0, so buf[:count] is always the live set.
func (r *SampleRing) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	return floats.Sum(r.buf[:r.count]) / float64(r.count)
}

// Values returns the held samples in chronological order.
func (r *SampleRing) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the most recent sample, or 0 if empty.
func (r *SampleRing) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)]
}

func (r *SampleRing) Len() int { return r.count }
func (r *SampleRing) Cap() int { return len(r.buf) }
