package summary

import "strings"

type StatusCount struct {
	Status string
	Count  int
}

type UnitTestSummary struct {
	TotalTests   int `json:"total_tests"`
	SuccessTests int `json:"success_tests"`
	FailedTests  int `json:"failed_tests"`
	SuccessPct   int `json:"success_pct"`
}

// IsSuccess reports whether a test status counts as passed. Anything other
// than "success" (any case) is a failure, including skipped tests.
func IsSuccess(status string) bool {
	return strings.ToLower(status) == "success"
}

func UnitTests(counts []StatusCount) UnitTestSummary {
	var s UnitTestSummary
	for _, c := range counts {
		s.TotalTests += c.Count
		if IsSuccess(c.Status) {
			s.SuccessTests += c.Count
		} else {
			s.FailedTests += c.Count
		}
	}
	s.SuccessPct = Percent(s.SuccessTests, s.TotalTests)
	return s
}
