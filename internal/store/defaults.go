package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/event-showcase/internal/model"
)

// Defaults is the catalog seeded into an empty store.
func Defaults() model.Catalog {
	return model.Catalog{
		Company: model.CompanyProfile{
			Name:                "Event Showcase",
			WatermarkText:       "Video by Event Showcase",
			IntroText:           "Presented by",
			Contacts:            []model.Contact{},
			DefaultPlayerAspect: model.Aspect16x9,
			Landing: model.Landing{
				Heading:         "Enter Public View",
				Subtitle:        "Professional live streaming & event cinematography",
				ProductsTitle:   "PRODUCTS",
				ProductsContent: "Packages & pricing can be edited in Admin",
			},
		},
		Events: []model.EventRecord{},
	}
}

// defaultsFile is the YAML layout accepted by LoadDefaults. Only the
// company profile can be overridden; the seeded event list is always
// empty.
type defaultsFile struct {
	Company *model.CompanyProfile `yaml:"company"`
}

// LoadDefaults returns Defaults with the company fields present in the
// YAML file at path laid over it. An empty path returns Defaults.
func LoadDefaults(path string) (model.Catalog, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Catalog{}, fmt.Errorf("defaults: read %s: %w", path, err)
	}
	// Decoding into a pre-filled value keeps fields the file omits.
	f := defaultsFile{Company: &c.Company}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return model.Catalog{}, fmt.Errorf("defaults: parse %s: %w", path, err)
	}
	if !c.Company.DefaultPlayerAspect.Valid() {
		return model.Catalog{}, fmt.Errorf("defaults: invalid defaultPlayerAspect %q", c.Company.DefaultPlayerAspect)
	}
	if c.Company.Contacts == nil {
		c.Company.Contacts = []model.Contact{}
	}
	return c, nil
}
