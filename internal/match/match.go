// Package match scores provider listings against a target restaurant name
// and selects the best acceptable candidate.
package match

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/textsim"
)

// Rejection explains why no match was returned.
type Rejection string

const (
	Accepted             Rejection = ""
	RejectNoCandidates   Rejection = "no_candidates"
	RejectBelowThreshold Rejection = "below_threshold"
	RejectNameSimilarity Rejection = "name_similarity"
	RejectGenericName    Rejection = "generic_name"
	RejectRegionOnly     Rejection = "region_only"
)

// Config holds the scoring weights and acceptance gates.
type Config struct {
	NameWeight        float64  `yaml:"name_weight" mapstructure:"name_weight"`
	KeywordWeight     float64  `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	LocationWeight    float64  `yaml:"location_weight" mapstructure:"location_weight"`
	AcceptThreshold   float64  `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	MinNameSimilarity float64  `yaml:"min_name_similarity" mapstructure:"min_name_similarity"`
	Suffixes          []string `yaml:"suffixes" mapstructure:"suffixes"`
}

// DefaultConfig returns the standard weights 0.7/0.2/0.1 and gates 0.3/0.2.
func DefaultConfig() Config {
	return Config{
		NameWeight:        0.7,
		KeywordWeight:     0.2,
		LocationWeight:    0.1,
		AcceptThreshold:   0.3,
		MinNameSimilarity: 0.2,
		Suffixes:          textsim.DefaultSuffixes,
	}
}

// RegionChecker validates a listing against an expected region.
type RegionChecker interface {
	ValidateRegion(region string, l model.ProviderListing) bool
}

// Matcher selects the best listing for a target name.
type Matcher struct {
	cfg     Config
	regions RegionChecker
	deny    *denylist.List
}

// New creates a Matcher. Zero-valued weights and gates fall back to defaults.
func New(cfg Config, regions RegionChecker, deny *denylist.List) *Matcher {
	def := DefaultConfig()
	if cfg.NameWeight == 0 && cfg.KeywordWeight == 0 && cfg.LocationWeight == 0 {
		cfg.NameWeight, cfg.KeywordWeight, cfg.LocationWeight = def.NameWeight, def.KeywordWeight, def.LocationWeight
	}
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = def.AcceptThreshold
	}
	if cfg.MinNameSimilarity <= 0 {
		cfg.MinNameSimilarity = def.MinNameSimilarity
	}
	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = def.Suffixes
	}
	return &Matcher{cfg: cfg, regions: regions, deny: deny}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Score computes the composite score of one listing.
func (m *Matcher) Score(target, region string, l model.ProviderListing) model.MatchResult {
	return m.score(target, region, textsim.Keywords(target, m.cfg.Suffixes), l)
}

func (m *Matcher) score(target, region string, keywords []string, l model.ProviderListing) model.MatchResult {
	nameSim := textsim.Similarity(target, l.Name)
	kw := textsim.KeywordOverlap(keywords, l.Name)
	loc := region == "" || m.regions == nil || m.regions.ValidateRegion(region, l)

	score := nameSim*m.cfg.NameWeight + kw*m.cfg.KeywordWeight
	if loc {
		score += m.cfg.LocationWeight
	}
	return model.MatchResult{
		Listing:        l,
		Score:          score,
		NameSimilarity: nameSim,
		KeywordScore:   kw,
		LocationMatch:  loc,
	}
}

// Best returns the highest scoring listing, first seen winning ties, and
// whether it clears the acceptance threshold.
func (m *Matcher) Best(target, region string, listings []model.ProviderListing) (*model.MatchResult, bool) {
	if len(listings) == 0 {
		return nil, false
	}
	keywords := textsim.Keywords(target, m.cfg.Suffixes)

	var best *model.MatchResult
	for _, l := range listings {
		r := m.score(target, region, keywords, l)
		if best == nil || r.Score > best.Score {
			r := r
			best = &r
		}
	}
	return best, best.Score >= m.cfg.AcceptThreshold
}

// Match selects the best listing for target and applies both acceptance
// gates. A nil result always comes with a non-empty Rejection.
func (m *Matcher) Match(target, region string, listings []model.ProviderListing) (*model.MatchResult, Rejection) {
	best, ok := m.Best(target, region, listings)
	if best == nil {
		return nil, RejectNoCandidates
	}
	if !ok {
		zap.L().Debug("match below threshold",
			zap.String("target", target),
			zap.String("best", best.Listing.Name),
			zap.Float64("score", best.Score),
		)
		return nil, RejectBelowThreshold
	}
	if reason := m.Validate(target, best); reason != Accepted {
		zap.L().Debug("match rejected",
			zap.String("target", target),
			zap.String("matched", best.Listing.Name),
			zap.String("reason", string(reason)),
		)
		return nil, reason
	}
	return best, Accepted
}

// Validate is the post-match gate. It rejects low name similarity,
// generic listing names and matches that overlap only on a region token.
func (m *Matcher) Validate(target string, r *model.MatchResult) Rejection {
	if r == nil {
		return RejectNoCandidates
	}
	if r.Score < m.cfg.AcceptThreshold {
		return RejectBelowThreshold
	}
	if r.NameSimilarity < m.cfg.MinNameSimilarity {
		return RejectNameSimilarity
	}

	matched := strings.ToLower(strings.TrimSpace(r.Listing.Name))
	if m.isGeneric(matched) {
		return RejectGenericName
	}
	if m.regionOnly(strings.ToLower(target), matched) {
		return RejectRegionOnly
	}
	return Accepted
}

// isGeneric reports whether name is a generic venue word, optionally
// prefixed by nothing more than a region token.
func (m *Matcher) isGeneric(name string) bool {
	if m.deny == nil {
		return false
	}
	compact := textsim.Normalize(name)
	if m.deny.IsGenericName(compact) {
		return true
	}
	suf, ok := m.deny.GenericSuffix(compact)
	if !ok {
		return false
	}
	rest := m.deny.StripRegions(strings.TrimSuffix(compact, suf))
	return utf8.RuneCountInString(rest) < 2
}

// regionOnly reports whether target and matched share a region token and
// matched has at most two runes left once that token is removed, with the
// remainder not found in the target.
func (m *Matcher) regionOnly(target, matched string) bool {
	if m.deny == nil {
		return false
	}
	for _, r := range m.deny.Regions() {
		if !strings.Contains(target, r) || !strings.Contains(matched, r) {
			continue
		}
		rest := strings.TrimSpace(strings.Replace(matched, r, "", 1))
		if utf8.RuneCountInString(rest) > 2 {
			continue
		}
		targetRest := textsim.Normalize(strings.Replace(target, r, "", 1))
		if n := textsim.Normalize(rest); n != "" && strings.Contains(targetRest, n) {
			continue
		}
		return true
	}
	return false
}
