// Package discovery collects candidate restaurant names for a region and
// merges them across sources.
package discovery

import (
	"sort"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/textsim"
)

// DefaultMergeThreshold is the key similarity at which a secondary name is
// treated as a duplicate.
const DefaultMergeThreshold = 0.8

// SourceList is the candidate list produced by one source.
type SourceList struct {
	Source     string
	Candidates []model.MentionCandidate
}

// MergeConfig configures a Merger.
type MergeConfig struct {
	Threshold float64  `yaml:"threshold" mapstructure:"threshold"`
	Priority  []string `yaml:"priority" mapstructure:"priority"`
}

// Merger unions candidate lists from several sources into one
// deduplicated list.
type Merger struct {
	threshold float64
	rank      map[string]int
	deny      *denylist.List
}

// NewMerger creates a Merger. Sources earlier in cfg.Priority win.
func NewMerger(cfg MergeConfig, deny *denylist.List) *Merger {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMergeThreshold
	}
	rank := make(map[string]int, len(cfg.Priority))
	for i, s := range cfg.Priority {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}
	return &Merger{threshold: cfg.Threshold, rank: rank, deny: deny}
}

// Key is the comparison form of a name: normalized with region tokens
// removed. A name made only of region tokens keys on itself.
func (m *Merger) Key(name string) string {
	key := textsim.Normalize(name)
	if m.deny == nil {
		return key
	}
	if stripped := m.deny.StripRegions(key); stripped != "" {
		return stripped
	}
	return key
}

// Merge orders sources by priority, adds every candidate of the first
// source and admits a later candidate only when its key is below the
// threshold against every accepted key. Mentions of dropped duplicates
// are folded into the candidate they duplicate.
func (m *Merger) Merge(sources ...SourceList) []model.MentionCandidate {
	ordered := make([]SourceList, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return m.priority(ordered[i].Source) < m.priority(ordered[j].Source)
	})

	var (
		out   []model.MentionCandidate
		keys  []string
		index = make(map[string]int)
	)
	for si, src := range ordered {
		for _, c := range src.Candidates {
			key := m.Key(c.Name)
			if key == "" {
				continue
			}
			if si > 0 {
				i, ok := index[key]
				if !ok {
					i = m.nearest(keys, key)
				}
				if i >= 0 {
					out[i].Mentions = append(out[i].Mentions, c.Mentions...)
					continue
				}
			}
			if c.Source == "" {
				c.Source = src.Source
			}
			if _, ok := index[key]; !ok {
				index[key] = len(out)
			}
			keys = append(keys, key)
			out = append(out, c)
		}
	}
	return out
}

func (m *Merger) priority(source string) int {
	if r, ok := m.rank[source]; ok {
		return r
	}
	return len(m.rank)
}

// nearest returns the index of the first accepted key at or above the
// threshold, or -1.
func (m *Merger) nearest(keys []string, key string) int {
	for i, k := range keys {
		if textsim.SimilarityNormalized(k, key) >= m.threshold {
			return i
		}
	}
	return -1
}
