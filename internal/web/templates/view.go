// Package templates renders the HTML pages of the import UI. The pages are
// templ components; run `templ generate` after editing a .templ file.
package templates

import (
	"fmt"
	"sort"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
)

// ReviewLine is one row of the review table.
type ReviewLine struct {
	Line        int
	Values      []string
	ValidatesAs string
	Errors      []string
}

func (l ReviewLine) outcome() string {
	if l.ValidatesAs == "" {
		return "invalid"
	}
	return "valid"
}

// ReviewView is everything the review page shows.
type ReviewView struct {
	UploadID        string
	Columns         []string
	Lines           []ReviewLine
	Errors          []string
	Classifications map[string]int
	Invalid         int
	ResetCounts     map[int64]int64
	StageSize       int
}

// Stages splits the reviewed lines into save ranges of StageSize lines.
func (v ReviewView) Stages() [][2]int {
	lines := make([]int, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = l.Line
	}
	return core.StageRanges(lines, v.StageSize)
}

func (v ReviewView) classificationNames() []string {
	names := make([]string, 0, len(v.Classifications))
	for n := range v.Classifications {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v ReviewView) resetSuppliers() []int64 {
	ids := make([]int64, 0, len(v.ResetCounts))
	for id := range v.ResetCounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (v ReviewView) exportURL() string {
	return "/api/imports/" + v.UploadID + "/review.xlsx"
}

func formatSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
