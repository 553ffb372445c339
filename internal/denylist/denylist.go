// Package denylist loads the versioned rejection ruleset used to filter
// candidate restaurant names.
package denylist

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed denylist.yaml
var defaultAsset []byte

// Asset is the on-disk shape of a denylist file.
type Asset struct {
	Version      string              `yaml:"version"`
	Exclude      map[string][]string `yaml:"exclude"`
	Regions      []string            `yaml:"regions"`
	Adjectives   []string            `yaml:"adjectives"`
	GenericNames []string            `yaml:"generic_names"`
	CommonNames  []string            `yaml:"common_names"`
	Chains       []string            `yaml:"chains"`
}

// List is a compiled denylist. It is immutable and safe for concurrent use.
type List struct {
	version  string
	terms    []string
	exact    map[string]bool
	matcher  *ahocorasick.Matcher
	regions  map[string]bool
	regionsL []string
	adjs     []string
	generic  map[string]bool
	common   map[string]bool
	chains   []string
}

// Default returns the denylist embedded in the binary.
func Default() *List {
	l, err := Parse(defaultAsset)
	if err != nil {
		panic(eris.Wrap(err, "denylist: embedded asset"))
	}
	return l
}

// Load reads a denylist from path. An empty path yields the embedded list.
func Load(path string) (*List, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "denylist: read %s", path)
	}
	return Parse(data)
}

// Parse compiles a denylist from YAML bytes.
func Parse(data []byte) (*List, error) {
	var a Asset
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "denylist: unmarshal")
	}
	if a.Version == "" {
		return nil, eris.New("denylist: version is required")
	}
	return Compile(a), nil
}

// Compile builds a List from an already decoded asset.
func Compile(a Asset) *List {
	l := &List{
		version: a.Version,
		exact:   make(map[string]bool),
		regions: make(map[string]bool),
		generic: make(map[string]bool),
		common:  make(map[string]bool),
	}

	groups := make([]string, 0, len(a.Exclude))
	for g := range a.Exclude {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for _, term := range a.Exclude[g] {
			term = strings.TrimSpace(term)
			if term == "" || l.exact[term] {
				continue
			}
			l.exact[term] = true
			l.terms = append(l.terms, term)
		}
	}
	if len(l.terms) > 0 {
		l.matcher = ahocorasick.NewStringMatcher(l.terms)
	}

	for _, r := range a.Regions {
		if r = strings.TrimSpace(r); r != "" && !l.regions[r] {
			l.regions[r] = true
			l.regionsL = append(l.regionsL, r)
		}
	}
	// Longest first so 제주도 is removed before 제주.
	sort.SliceStable(l.regionsL, func(i, j int) bool {
		return len(l.regionsL[i]) > len(l.regionsL[j])
	})

	l.adjs = trimAll(a.Adjectives)
	for _, g := range trimAll(a.GenericNames) {
		l.generic[g] = true
	}
	for _, c := range trimAll(a.CommonNames) {
		l.common[c] = true
	}
	for _, c := range trimAll(a.Chains) {
		l.chains = append(l.chains, strings.ToUpper(c))
	}
	return l
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Version returns the asset version string.
func (l *List) Version() string { return l.version }

// Terms returns the exclusion terms in compile order.
func (l *List) Terms() []string {
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// Exact reports whether s is itself an exclusion term.
func (l *List) Exact(s string) bool {
	return l.exact[s]
}

// ContainsAny reports whether s contains at least one exclusion term.
func (l *List) ContainsAny(s string) bool {
	if l.matcher == nil || s == "" {
		return false
	}
	return len(l.matcher.Match([]byte(s))) > 0
}

// Hits returns the exclusion terms found in s.
func (l *List) Hits(s string) []string {
	if l.matcher == nil || s == "" {
		return nil
	}
	idx := l.matcher.Match([]byte(s))
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < len(l.terms) {
			out = append(out, l.terms[i])
		}
	}
	return out
}

// IsRegion reports whether s is a bare region token.
func (l *List) IsRegion(s string) bool {
	return l.regions[strings.TrimSpace(s)]
}

// Regions returns region tokens, longest first.
func (l *List) Regions() []string {
	out := make([]string, len(l.regionsL))
	copy(out, l.regionsL)
	return out
}

// StripRegions removes every region token from s.
func (l *List) StripRegions(s string) string {
	for _, r := range l.regionsL {
		s = strings.ReplaceAll(s, r, "")
	}
	return s
}

// HasAdjective reports whether s contains one of the hype adjectives.
func (l *List) HasAdjective(s string) bool {
	for _, a := range l.adjs {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}

// IsGenericName reports whether s is exactly a generic venue word.
func (l *List) IsGenericName(s string) bool {
	return l.generic[strings.TrimSpace(s)]
}

// GenericSuffix returns the generic venue word s ends with, if any.
func (l *List) GenericSuffix(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for g := range l.generic {
		if strings.HasSuffix(s, g) {
			return g, true
		}
	}
	return "", false
}

// IsCommonName reports whether s is one of the overly common naming patterns.
func (l *List) IsCommonName(s string) bool {
	return l.common[strings.TrimSpace(s)]
}

// IsChain reports whether name contains a nationwide chain brand.
func (l *List) IsChain(name string) bool {
	up := strings.ToUpper(name)
	for _, c := range l.chains {
		if strings.Contains(up, c) {
			return true
		}
	}
	return false
}
