package summary

// Band is the coverage bucket of a file or target.
type Band string

const (
	BandNone          Band = "none"
	BandGood          Band = "good"
	BandUncategorized Band = "uncategorized"
)

// CoverageThresholds buckets ratios: at or below NoCoverage is "none", at or
// above Good is "good", anything in between counts toward the total only.
type CoverageThresholds struct {
	NoCoverage float64
	Good       float64
}

var DefaultCoverageThresholds = CoverageThresholds{NoCoverage: 0.0, Good: 0.9}

func (t CoverageThresholds) Classify(ratio float64) Band {
	switch {
	case ratio <= t.NoCoverage:
		return BandNone
	case ratio >= t.Good:
		return BandGood
	default:
		return BandUncategorized
	}
}

type CoverageSummary struct {
	CoveragePct       int `json:"coverage_pct"`
	Files             int `json:"files"`
	NoCoverageFiles   int `json:"no_coverage_files"`
	NoCoveragePct     int `json:"no_coverage_pct"`
	GoodCoverageFiles int `json:"good_coverage_files"`
	GoodCoveragePct   int `json:"good_coverage_pct"`
}

// Coverage summarizes a report from its overall ratio and per-file ratios.
func Coverage(lineCoverage float64, fileRatios []float64, t CoverageThresholds) CoverageSummary {
	s := CoverageSummary{
		CoveragePct: RatioPercent(lineCoverage),
		Files:       len(fileRatios),
	}
	for _, r := range fileRatios {
		switch t.Classify(r) {
		case BandNone:
			s.NoCoverageFiles++
		case BandGood:
			s.GoodCoverageFiles++
		}
	}
	s.NoCoveragePct = Percent(s.NoCoverageFiles, s.Files)
	s.GoodCoveragePct = Percent(s.GoodCoverageFiles, s.Files)
	return s
}
