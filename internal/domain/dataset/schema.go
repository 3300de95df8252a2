package dataset

// Schema lists the numeric feature columns of a dataset in header order.
type Schema struct {
	metrics []string
	index   map[string]int
}

// NewSchema builds a schema from metric names. Repeated names keep their
// first position.
func NewSchema(metrics []string) Schema {
	s := Schema{
		metrics: make([]string, 0, len(metrics)),
		index:   make(map[string]int, len(metrics)),
	}
	for _, m := range metrics {
		if _, dup := s.index[m]; dup {
			continue
		}
		s.index[m] = len(s.metrics)
		s.metrics = append(s.metrics, m)
	}
	return s
}

// Metrics returns a copy of the metric names in schema order.
func (s Schema) Metrics() []string {
	out := make([]string, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// Has reports whether name is a known numeric metric.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of metrics.
func (s Schema) Len() int { return len(s.metrics) }

// ValidateSelection checks that features is non-empty, free of repeats, and
// only names known metrics.
func (s Schema) ValidateSelection(features []string) error {
	if len(features) == 0 {
		return &SelectionError{Reason: "must name at least one feature"}
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if !s.Has(f) {
			return &SelectionError{Feature: f, Reason: "is not a numeric metric of the dataset"}
		}
		if _, dup := seen[f]; dup {
			return &SelectionError{Feature: f, Reason: "is selected more than once"}
		}
		seen[f] = struct{}{}
	}
	return nil
}
