// Package region decides whether a listing lies inside an expected
// geographic region, by address keywords or by bounding box.
package region

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
)

//go:embed regions.yaml
var defaultCatalog []byte

// PriorityKeyword maps an address keyword straight to a region. When
// Requires is set, the address must also contain it.
type PriorityKeyword struct {
	Keyword  string `yaml:"keyword"`
	Requires string `yaml:"requires"`
}

// Box is a latitude/longitude bounding box.
type Box struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

// Region describes one crawlable region.
type Region struct {
	Name      string            `yaml:"name"`
	Province  string            `yaml:"province"`
	City      string            `yaml:"city"`
	Priority  []PriorityKeyword `yaml:"priority"`
	Keywords  []string          `yaml:"keywords"`
	Districts []string          `yaml:"districts"`
	Bounds    *Box              `yaml:"bounds"`
	Queries   []string          `yaml:"queries"`
}

type catalogFile struct {
	Regions []Region `yaml:"regions"`
}

// Validator checks listings against regions. It is safe for concurrent use.
type Validator struct {
	regions []Region
	byName  map[string]*Region
	boxes   map[string]*geom.Bounds
	deny    *denylist.List
}

// Load reads a region catalog from path; an empty path uses the embedded one.
func Load(path string, deny *denylist.List) (*Validator, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "region: read %s", path)
		}
		data = b
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "region: unmarshal catalog")
	}
	if len(f.Regions) == 0 {
		return nil, eris.New("region: catalog has no regions")
	}
	return New(f.Regions, deny), nil
}

// Default returns a Validator over the embedded catalog.
func Default(deny *denylist.List) *Validator {
	v, err := Load("", deny)
	if err != nil {
		panic(err)
	}
	return v
}

// New builds a Validator from regions.
func New(regions []Region, deny *denylist.List) *Validator {
	v := &Validator{
		regions: regions,
		byName:  make(map[string]*Region, len(regions)),
		boxes:   make(map[string]*geom.Bounds),
		deny:    deny,
	}
	for i := range v.regions {
		r := &v.regions[i]
		v.byName[r.Name] = r
		if r.Bounds != nil {
			v.boxes[r.Name] = geom.NewBounds(geom.XY).Set(
				r.Bounds.MinLng, r.Bounds.MinLat,
				r.Bounds.MaxLng, r.Bounds.MaxLat,
			)
		}
	}
	return v
}

// Region returns the named region.
func (v *Validator) Region(name string) (Region, bool) {
	r, ok := v.byName[name]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Names returns the names of regions that have search queries configured.
func (v *Validator) Names() []string {
	var out []string
	for _, r := range v.regions {
		if len(r.Queries) > 0 {
			out = append(out, r.Name)
		}
	}
	return out
}

// Queries returns the text-source search queries for a region.
func (v *Validator) Queries(name string) []string {
	if r, ok := v.byName[name]; ok {
		return r.Queries
	}
	return nil
}

// Province returns the province-level administrative name for a region.
func (v *Validator) Province(name string) string {
	if r, ok := v.byName[name]; ok && r.Province != "" {
		return r.Province
	}
	return name
}

// City returns the city-level administrative name for a region.
func (v *Validator) City(name string) string {
	if r, ok := v.byName[name]; ok && r.City != "" {
		return r.City
	}
	return name
}

// ExtractRegionFromAddress infers the region of an address. Priority
// keywords win, then city-level keywords, then district keywords.
func (v *Validator) ExtractRegionFromAddress(address string) (string, bool) {
	if address == "" {
		return "", false
	}
	for _, r := range v.regions {
		for _, p := range r.Priority {
			if strings.Contains(address, p.Keyword) &&
				(p.Requires == "" || strings.Contains(address, p.Requires)) {
				return r.Name, true
			}
		}
	}
	for _, r := range v.regions {
		for _, k := range r.Keywords {
			if strings.Contains(address, k) {
				return r.Name, true
			}
		}
	}
	for _, r := range v.regions {
		for _, k := range r.Districts {
			if strings.Contains(address, k) {
				return r.Name, true
			}
		}
	}
	return "", false
}

// ValidateByAddress reports whether address resolves to region. For a
// region missing from the catalog the address must contain its name.
func (v *Validator) ValidateByAddress(region, address string) bool {
	if _, known := v.byName[region]; !known {
		return region != "" && strings.Contains(address, region)
	}
	got, ok := v.ExtractRegionFromAddress(address)
	return ok && got == region
}

// ValidateByCoordinates reports whether (lat, lng) falls inside the
// region's bounding box. The zero coordinate never validates.
func (v *Validator) ValidateByCoordinates(region string, lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	b, ok := v.boxes[region]
	if !ok {
		return false
	}
	return b.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// IsAllowedException reports whether name is a nationwide chain, which is
// accepted in any region.
func (v *Validator) IsAllowedException(name, _ string, _ string) bool {
	return v.deny != nil && v.deny.IsChain(name)
}

// ValidateRegion accepts a listing for region when it is a chain
// exception, or when either the address or the coordinates agree.
func (v *Validator) ValidateRegion(region string, l model.ProviderListing) bool {
	if v.IsAllowedException(l.Name, region, l.Address) {
		return true
	}
	if v.ValidateByAddress(region, l.Address) || v.ValidateByAddress(region, l.RoadAddress) {
		return true
	}
	if v.ValidateByCoordinates(region, l.Lat, l.Lng) {
		return true
	}
	zap.L().Debug("region mismatch",
		zap.String("region", region),
		zap.String("listing", l.Name),
		zap.String("address", l.Address),
	)
	return false
}
