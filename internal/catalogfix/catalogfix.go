// Package catalogfix rewrites catalog branch names into their canonical form
// and merges branches that collapse onto the same name.
package catalogfix

import (
	"sort"

	"github.com/okian/collegefinder/internal/domain/branch"
	"github.com/okian/collegefinder/internal/domain/model"
)

// Change records one renamed branch.
type Change struct {
	CollegeID string `json:"collegeId"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Report summarises a normalisation pass.
type Report struct {
	Renamed int      `json:"renamed"`
	Merged  int      `json:"merged"`
	Changes []Change `json:"changes"`
}

// Changed reports whether the pass modified anything.
func (r Report) Changed() bool { return r.Renamed > 0 || r.Merged > 0 }

func (r *Report) add(o Report) {
	r.Renamed += o.Renamed
	r.Merged += o.Merged
	r.Changes = append(r.Changes, o.Changes...)
}

// Fix normalises every college. The input is not modified.
func Fix(colleges []model.College) ([]model.College, Report) {
	out := make([]model.College, len(colleges))
	var rep Report
	for i, c := range colleges {
		fixed, r := NormalizeCollege(c)
		out[i] = fixed
		rep.add(r)
	}
	return out, rep
}

// NormalizeCollege canonicalises the branch names of c. Branches that end up
// with the same name are merged: the smaller rank wins per category and
// histories are merged by year.
func NormalizeCollege(c model.College) (model.College, Report) {
	var rep Report
	merged := make([]model.Branch, 0, len(c.BranchesOffered))
	index := map[string]int{}

	for _, b := range c.BranchesOffered {
		name := branch.Canonical(b.Name)
		if name != b.Name {
			rep.Renamed++
			rep.Changes = append(rep.Changes, Change{CollegeID: c.ID, From: b.Name, To: name})
		}
		nb := model.Branch{
			Name:           name,
			Cutoff:         mergeCutoffs(nil, b.Cutoff),
			HistoricalData: mergeHistory(nil, b.HistoricalData),
		}
		if i, ok := index[name]; ok {
			rep.Merged++
			merged[i].Cutoff = mergeCutoffs(merged[i].Cutoff, nb.Cutoff)
			merged[i].HistoricalData = mergeHistory(merged[i].HistoricalData, nb.HistoricalData)
			continue
		}
		index[name] = len(merged)
		merged = append(merged, nb)
	}

	c.BranchesOffered = merged
	return c, rep
}

// mergeCutoffs copies src into dst keeping the smaller positive rank.
func mergeCutoffs(dst, src map[string]int) map[string]int {
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		if cur, ok := dst[k]; !ok || (v > 0 && (cur <= 0 || v < cur)) {
			dst[k] = v
		}
	}
	return dst
}

func mergeHistory(dst, src []model.YearCutoff) []model.YearCutoff {
	byYear := make(map[int]map[string]int, len(dst)+len(src))
	for _, h := range dst {
		byYear[h.Year] = mergeCutoffs(byYear[h.Year], h.Cutoff)
	}
	for _, h := range src {
		byYear[h.Year] = mergeCutoffs(byYear[h.Year], h.Cutoff)
	}
	if len(byYear) == 0 {
		return nil
	}
	out := make([]model.YearCutoff, 0, len(byYear))
	for y, m := range byYear {
		out = append(out, model.YearCutoff{Year: y, Cutoff: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
