package analysis

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Level is a geographic grouping dimension.
type Level string

const (
	State    Level = dataset.ColState
	District Level = dataset.ColDistrict
	Pincode  Level = dataset.ColPincode
)

// ParseLevel validates a geographic level name.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case State:
		return State, nil
	case District:
		return District, nil
	case Pincode:
		return Pincode, nil
	default:
		return "", eris.Errorf("analysis: unknown geographic level %q (valid: state, district, pincode)", s)
	}
}

// GroupStat aggregates one geographic unit.
type GroupStat struct {
	Key   string  `json:"key"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Geographic sums a numeric column per unit of a level, largest sum first.
// Equal sums are ordered by key.
func Geographic(t *table.Table, level Level, column string) ([]GroupStat, error) {
	level, err := ParseLevel(string(level))
	if err != nil {
		return nil, err
	}
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	keys, err := t.Labels(string(level))
	if err != nil {
		return nil, err
	}
	zap.L().Debug("geographic aggregation",
		zap.String("component", "analysis"),
		zap.String("level", string(level)),
		zap.String("column", column),
	)

	idx := make(map[string]int)
	var out []GroupStat
	for i, k := range keys {
		pos, ok := idx[k]
		if !ok {
			pos = len(out)
			idx[k] = pos
			out = append(out, GroupStat{Key: k})
		}
		out[pos].Sum += values[i]
		out[pos].Count++
	}
	for i := range out {
		out[i].Mean = out[i].Sum / float64(out[i].Count)
	}
	sortGroups(out)
	if out == nil {
		out = []GroupStat{}
	}
	return out, nil
}

func sortGroups(g []GroupStat) {
	sort.Slice(g, func(i, j int) bool {
		if g[i].Sum != g[j].Sum {
			return g[i].Sum > g[j].Sum
		}
		return g[i].Key < g[j].Key
	})
}

// TopN returns the n units with the largest sums.
func TopN(t *table.Table, level Level, column string, n int) ([]GroupStat, error) {
	if n < 1 {
		return nil, eris.Errorf("analysis: top n must be >= 1, got %d", n)
	}
	groups, err := Geographic(t, level, column)
	if err != nil {
		return nil, err
	}
	if len(groups) > n {
		groups = groups[:n]
	}
	return groups, nil
}
