package summary

import "github.com/tidwall/gjson"

type ImageDiffCounts struct {
	New     int `json:"new"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

func (c ImageDiffCounts) Total() int {
	return c.New + c.Changed + c.Removed
}

// ImageDiff counts the entries of the new, changed and removed sequences.
// Missing or non-array members count as zero.
func ImageDiff(raw []byte) ImageDiffCounts {
	res := gjson.GetManyBytes(raw, "new.#", "changed.#", "removed.#")
	return ImageDiffCounts{
		New:     int(res[0].Int()),
		Changed: int(res[1].Int()),
		Removed: int(res[2].Int()),
	}
}
