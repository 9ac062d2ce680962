package sampler

// Window is a fixed capacity circular buffer of power samples. The
// average is recomputed from every slot so truncation error never
// accumulates.
type Window struct {
	data []int
	pos  int
}

func NewWindow(size int) *Window {
	return &Window{data: make([]int, size)}
}

// Fill sets every slot to v and resets the write position.
func (w *Window) Fill(v int) {
	for i := range w.data {
		w.data[i] = v
	}
	w.pos = 0
}

// Add overwrites the oldest slot.
func (w *Window) Add(v int) {
	w.data[w.pos] = v
	w.pos = (w.pos + 1) % len(w.data)
}

func (w *Window) Average() int {
	var sum int64
	for _, d := range w.data {
		sum += int64(d)
	}
	return int(sum / int64(len(w.data)))
}

func (w *Window) Len() int {
	return len(w.data)
}

// Samples returns a copy of the slots, oldest first.
func (w *Window) Samples() []int {
	out := make([]int, 0, len(w.data))
	out = append(out, w.data[w.pos:]...)
	return append(out, w.data[:w.pos]...)
}
