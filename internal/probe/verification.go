package probe

import (
	"fmt"
	"math"

	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/internal/domain/types"
)

// checkNeighbors returns the invariant violations found in a similarity
// answer. k is the requested count, 0 when the service default applied.
func checkNeighbors(subject model.Key, k int, resp types.NeighborsResponse) []string {
	var out []string
	if k > 0 && len(resp.Neighbors) != k {
		out = append(out, fmt.Sprintf("%s: %d neighbors, requested %d", subject, len(resp.Neighbors), k))
	}
	if len(resp.Features) == 0 {
		out = append(out, fmt.Sprintf("%s: empty feature selection in answer", subject))
	}
	prev := math.Inf(-1)
	for i, nb := range resp.Neighbors {
		if nb.PlayerName == subject.PlayerName {
			out = append(out, fmt.Sprintf("%s: neighbor %d is the subject's own player", subject, i))
		}
		if math.IsNaN(nb.Distance) || nb.Distance < 0 || nb.Distance > 2 {
			out = append(out, fmt.Sprintf("%s: neighbor %d distance %v outside [0, 2]", subject, i, nb.Distance))
		}
		if nb.Distance < prev {
			out = append(out, fmt.Sprintf("%s: neighbor %d distance %v below previous %v", subject, i, nb.Distance, prev))
		}
		prev = nb.Distance
	}
	return out
}

// checkSeparation returns the invariant violations found in a separation
// answer. n is the requested count, 0 when the service default applied.
func checkSeparation(subject model.Key, n int, resp types.SeparationResponse) []string {
	var out []string
	if resp.Metrics == nil {
		out = append(out, fmt.Sprintf("%s: metrics is null", subject))
	}
	if len(resp.Metrics) == 0 && resp.EmptyReason == "" {
		out = append(out, fmt.Sprintf("%s: empty ranking without a reason", subject))
	}
	if n > 0 && len(resp.Metrics) > n {
		out = append(out, fmt.Sprintf("%s: %d metrics, requested at most %d", subject, len(resp.Metrics), n))
	}
	prev := math.Inf(1)
	for i, m := range resp.Metrics {
		if m.Magnitude != math.Abs(m.Value) {
			out = append(out, fmt.Sprintf("%s: %s magnitude %v is not |%v|", subject, m.Metric, m.Magnitude, m.Value))
		}
		if m.Magnitude > prev {
			out = append(out, fmt.Sprintf("%s: metric %d (%s) ranks above a smaller magnitude", subject, i, m.Metric))
		}
		prev = m.Magnitude
		if m.Summary.SubjectValue != m.Value {
			out = append(out, fmt.Sprintf("%s: %s summary subject value %v differs from %v", subject, m.Metric, m.Summary.SubjectValue, m.Value))
		}
		if len(m.Summary.SampleValues) == 0 {
			out = append(out, fmt.Sprintf("%s: %s has no population sample", subject, m.Metric))
		}
		if len(m.Summary.Histogram) > 0 {
			total := 0
			for _, b := range m.Summary.Histogram {
				total += b.Count
			}
			if total != len(m.Summary.SampleValues) {
				out = append(out, fmt.Sprintf("%s: %s histogram counts %d of %d samples", subject, m.Metric, total, len(m.Summary.SampleValues)))
			}
		}
	}
	return out
}
