package mask

import (
	"fmt"
	"image"
)

// Failure describes one mask that did not decode.
type Failure struct {
	Label string
	Err   error
}

// Report tallies mask decode results across a document.
type Report struct {
	Total    int
	Decoded  int
	Failed   int
	Pixels   int // foreground pixels over all decoded masks
	Failures []Failure
}

// Check decodes encoded and records the outcome under label.
func (r *Report) Check(label, encoded string) (*image.Gray, bool) {
	r.Total++
	m, err := Decode(encoded)
	if err != nil {
		r.Failed++
		r.Failures = append(r.Failures, Failure{Label: label, Err: err})
		return nil, false
	}
	r.Decoded++
	r.Pixels += Area(m)
	return m, true
}

// OK reports whether every checked mask decoded.
func (r *Report) OK() bool {
	return r.Failed == 0
}

func (r *Report) String() string {
	return fmt.Sprintf("%d masks: %d decoded, %d failed, %d foreground pixels",
		r.Total, r.Decoded, r.Failed, r.Pixels)
}
