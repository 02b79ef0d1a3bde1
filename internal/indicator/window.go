package indicator

import "github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"

// Sample is one observed price point.
type Sample struct {
	Ts     quant.TimeStamp
	Price  float64
	Volume float64
}

// Window is a bounded FIFO of price samples backed by a ring buffer.
// Push is O(1); length never exceeds the configured capacity.
// OPTIMIZED: fixed-size allocation, Zero-Alloc in the hotpath.
type Window struct {
	samples []Sample
	head    int // next write position
	count   int
}

// NewWindow creates a window holding at most n samples.
func NewWindow(n int) *Window {
	if n < 1 {
		panic("indicator: window size must be >= 1")
	}
	return &Window{samples: make([]Sample, n)}
}

// Push appends a sample, evicting the oldest once the window is full.
func (w *Window) Push(s Sample) {
	w.samples[w.head] = s
	w.head = (w.head + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the configured maximum length.
func (w *Window) Cap() int {
	return len(w.samples)
}

// at returns the i-th sample in chronological order (0 = oldest).
func (w *Window) at(i int) Sample {
	start := w.head - w.count
	if start < 0 {
		start += len(w.samples)
	}
	return w.samples[(start+i)%len(w.samples)]
}

// Last returns the most recent sample.
func (w *Window) Last() (Sample, bool) {
	if w.count == 0 {
		return Sample{}, false
	}
	return w.at(w.count - 1), true
}

// Prices appends the held prices to dst in chronological order
// (most-recent last) and returns the extended slice.
func (w *Window) Prices(dst []float64) []float64 {
	for i := 0; i < w.count; i++ {
		dst = append(dst, w.at(i).Price)
	}
	return dst
}

// Volumes appends the held volumes to dst in chronological order and
// returns the extended slice.
func (w *Window) Volumes(dst []float64) []float64 {
	for i := 0; i < w.count; i++ {
		dst = append(dst, w.at(i).Volume)
	}
	return dst
}
