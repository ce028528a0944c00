package efficiency

// Pair is one comparison trial at a single set power.
// Units:
//   - Unoptimized/Optimized: DC power drawn in mW
type Pair struct {
	Unoptimized float64
	Optimized   float64
}

// Result is the DC power breakdown for one trial, or the average over many.
type Result struct {
	Unoptimized float64 // mW
	Optimized   float64 // mW
	Saving      float64 // % of the unoptimized power saved by the optimized PA configuration
}
