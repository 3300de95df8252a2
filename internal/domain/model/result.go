package model

// NeighborResult is one entry of a similarity answer.
type NeighborResult struct {
	PlayerName string  `json:"player_name"`
	Season     string  `json:"season"`
	Distance   float64 `json:"distance"`
}

// HistogramBin is a fixed-width bucket over a metric's population values.
// Lower is inclusive; Upper is exclusive except for the last bin.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// DistributionSummary describes where the subject sits in the eligible
// population for one metric.
type DistributionSummary struct {
	Median       float64        `json:"median"`
	SubjectValue float64        `json:"subject_value"`
	SampleValues []float64      `json:"sample_values"`
	Histogram    []HistogramBin `json:"histogram,omitempty"`
}

// MetricDeviation is one ranked metric of a separation answer. Magnitude is
// the absolute subject value; Value keeps its sign.
type MetricDeviation struct {
	Metric    string              `json:"metric"`
	Magnitude float64             `json:"magnitude"`
	Value     float64             `json:"value"`
	Summary   DistributionSummary `json:"summary"`
}

// Reasons a separation answer carries no ranking.
const (
	EmptyNotEligible     = "not_eligible"
	EmptyNoPopulation    = "no_population"
	EmptyNoSubjectValues = "no_subject_values"
)

// DeviationResult is the ranked metric list for a subject. An empty Metrics
// slice is a normal answer; EmptyReason says why.
type DeviationResult struct {
	Subject     Key               `json:"subject"`
	Metrics     []MetricDeviation `json:"metrics"`
	EmptyReason string            `json:"empty_reason,omitempty"`
}

// Empty reports whether the result carries no ranking.
func (r DeviationResult) Empty() bool {
	return len(r.Metrics) == 0
}

// MetricNames returns the ranked metric names in order.
func (r DeviationResult) MetricNames() []string {
	names := make([]string, len(r.Metrics))
	for i, m := range r.Metrics {
		names[i] = m.Metric
	}
	return names
}
