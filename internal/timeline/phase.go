package timeline

import "math"

// NormalizeQuantum applies the package quantum policy: values that are not
// strictly positive (including NaN) become 1.
func NormalizeQuantum(quantum float64) float64 {
	if !(quantum > 0) || math.IsInf(quantum, 0) {
		return 1
	}
	return quantum
}

// Phase returns x modulo quantum in [0, quantum).
func Phase(x, quantum float64) float64 {
	q := NormalizeQuantum(quantum)
	p := math.Mod(x, q)
	if p < 0 {
		p += q
	}
	// p+q can round up to exactly q for tiny negative x.
	if p >= q {
		p = 0
	}
	return p
}

// NextPhaseMatch returns the smallest value >= x whose phase equals the
// phase of target.
func NextPhaseMatch(x, target, quantum float64) float64 {
	q := NormalizeQuantum(quantum)
	diff := Phase(Phase(target, q)-Phase(x, q), q)
	return x + diff
}

// ClosestPhaseMatch returns the value nearest to x whose phase equals the
// phase of target.
func ClosestPhaseMatch(x, target, quantum float64) float64 {
	q := NormalizeQuantum(quantum)
	return NextPhaseMatch(x-q/2, target, q)
}
