package optimization

// MeanVector is an optional vector of expected returns. The zero value is absent, which asks
// OptPort for the pure minimum-variance portfolio.
type MeanVector struct {
	values  []float64
	present bool
}

// Absent returns a MeanVector with no expected returns.
func Absent() MeanVector {
	return MeanVector{}
}

// Present wraps expected returns. The slice is copied.
func Present(mu []float64) MeanVector {
	values := make([]float64, len(mu))
	copy(values, mu)
	return MeanVector{values: values, present: true}
}

// Get returns the expected returns and whether they are present.
func (m MeanVector) Get() ([]float64, bool) {
	return m.values, m.present
}
