package summary

import (
	"fmt"
	"sort"
)

type LanguageCount struct {
	Language     string `json:"language"`
	Files        int    `json:"number_of_files"`
	BlankLines   int    `json:"blank_lines"`
	CommentLines int    `json:"comment_lines"`
	CodeLines    int    `json:"code_lines"`
}

type LanguageShare struct {
	LanguageCount
	Pct   int    `json:"pct"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Chart is a label/data/color series ready for a doughnut chart.
type Chart struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
	Colors []string `json:"colors"`
}

type LinesOfCodeSummary struct {
	TotalLinesOfCode int             `json:"total_lines_of_code"`
	TotalFiles       int             `json:"total_files"`
	Languages        []LanguageShare `json:"languages"`
	Chart            Chart           `json:"chart"`
}

// LinesOfCode sums the per-language counts and computes each language's
// share of code lines. Shares are rounded independently and need not add up
// to 100. Languages come back ordered by code lines, largest first.
func LinesOfCode(langs []LanguageCount) LinesOfCodeSummary {
	var s LinesOfCodeSummary
	for _, l := range langs {
		s.TotalLinesOfCode += l.CodeLines
		s.TotalFiles += l.Files
	}

	sorted := make([]LanguageCount, len(langs))
	copy(sorted, langs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CodeLines > sorted[j].CodeLines
	})

	s.Languages = make([]LanguageShare, 0, len(sorted))
	for _, l := range sorted {
		pct := Percent(l.CodeLines, s.TotalLinesOfCode)
		share := LanguageShare{
			LanguageCount: l,
			Pct:           pct,
			Label:         fmt.Sprintf("%s (%d%%)", l.Language, pct),
			Color:         Color(l.Language),
		}
		s.Languages = append(s.Languages, share)
		s.Chart.Labels = append(s.Chart.Labels, share.Label)
		s.Chart.Data = append(s.Chart.Data, share.Pct)
		s.Chart.Colors = append(s.Chart.Colors, share.Color)
	}
	return s
}
