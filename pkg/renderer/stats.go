package renderer

import "time"

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalRays      int           // Number of rays rendered
	TotalSamples   int           // Field evaluations across all stages
	AverageSamples float64       // Field evaluations per ray
	Chunks         int           // Pipeline runs (ray chunks)
	Anomalies      int           // Non-finite values reported
	Elapsed        time.Duration // Wall time spent rendering
}

// merge accumulates another chunk's statistics
func (s *RenderStats) merge(other RenderStats) {
	s.TotalRays += other.TotalRays
	s.TotalSamples += other.TotalSamples
	s.Chunks += other.Chunks
	s.Anomalies += other.Anomalies
	s.Elapsed += other.Elapsed
	s.finalize()
}

// finalize calculates derived statistics
func (s *RenderStats) finalize() {
	if s.TotalRays == 0 {
		s.AverageSamples = 0
		return
	}
	s.AverageSamples = float64(s.TotalSamples) / float64(s.TotalRays)
}
