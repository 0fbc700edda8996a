// Package trainer builds the rank model artifact from KCET cutoff sheets.
package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/collegefinder/internal/domain/branch"
	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/model"
)

// Ranks outside (0, maxRank) are treated as noise.
const maxRank = 300000

var collegeLine = regexp.MustCompile(`^\d+,E\d+`)

// ParseStats counts what a parse saw.
type ParseStats struct {
	Colleges int
	Rows     int
	Skipped  int
}

// column is a category header cell.
type column struct {
	index int
	code  string
}

// ParseCSV reads one cutoff sheet for year. A college line starts a college,
// a line naming both 1G and GM sets the category columns and any other line
// with more than three fields is a branch row whose ranks sit under the
// recognised header cells. Branch names are canonicalised with norm; nil
// means the default normaliser.
func ParseCSV(r io.Reader, year int, norm *branch.Normalizer) ([]model.CutoffRecord, ParseStats, error) {
	if norm == nil {
		norm = branch.Default()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		out        []model.CutoffRecord
		stats      ParseStats
		code, name string
		categories []column
	)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("parse year %d: %w", year, err)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		line := strings.Join(fields, ",")
		if strings.Trim(line, ",") == "" {
			continue
		}

		switch {
		case collegeLine.MatchString(line) || strings.Contains(line, "College:"):
			if len(fields) > 2 {
				code, name = fields[1], fields[2]
				stats.Colleges++
			}
		case strings.Contains(line, "1G") && strings.Contains(line, "GM"):
			categories = categories[:0]
			for i, f := range fields {
				if i >= 2 && f != "" && category.Recognised(f) {
					categories = append(categories, column{i, category.Canonical(f)})
				}
			}
		case len(fields) > 3 && code != "" && len(categories) > 0:
			raw := strings.TrimSpace(fields[0] + " " + fields[1])
			if len(raw) < 3 {
				stats.Skipped++
				continue
			}
			stats.Rows++
			b := norm.Canonical(raw)
			for _, cat := range categories {
				if cat.index >= len(fields) {
					break
				}
				rank, ok := parseRank(fields[cat.index])
				if !ok {
					continue
				}
				out = append(out, model.CutoffRecord{Year: year, CollegeCode: code, CollegeName: name, Branch: b, Category: cat.code, Rank: rank})
			}
		default:
			stats.Skipped++
		}
	}
	return out, stats, nil
}

func parseRank(s string) (int, bool) {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "--", ""), " ", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n >= maxRank {
		return 0, false
	}
	return n, true
}
