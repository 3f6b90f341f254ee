package vectors

// Vector is one decoded channel value. Missing components read as zero.
type Vector []float32

// At returns component i, or 0 if the vector is shorter.
func (v Vector) At(i int) float32 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

// X returns the first component.
func (v Vector) X() float32 { return v.At(0) }

// Y returns the second component.
func (v Vector) Y() float32 { return v.At(1) }

// Z returns the third component.
func (v Vector) Z() float32 { return v.At(2) }

// W returns the fourth component.
func (v Vector) W() float32 { return v.At(3) }
