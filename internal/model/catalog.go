package model

// Aspect is a player aspect ratio.
type Aspect string

const (
	Aspect16x9 Aspect = "16:9"
	Aspect9x16 Aspect = "9:16"
	Aspect4x3  Aspect = "4:3"
	Aspect1x1  Aspect = "1:1"
)

// Valid reports whether a is one of the supported ratios.
func (a Aspect) Valid() bool {
	switch a {
	case Aspect16x9, Aspect9x16, Aspect4x3, Aspect1x1:
		return true
	}
	return false
}

// PaddingPercent is the vertical padding a responsive player needs to
// keep the ratio (height as a percentage of width).
func (a Aspect) PaddingPercent() float64 {
	switch a {
	case Aspect9x16:
		return 100 * 9.0 / 16.0
	case Aspect4x3:
		return 100 * 3.0 / 4.0
	case Aspect1x1:
		return 100
	}
	return 56.25
}

// Contact is one labelled line of the company contact block.
type Contact struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Landing holds the copy shown on the landing page.
type Landing struct {
	Heading         string `json:"heading" yaml:"heading"`
	Subtitle        string `json:"subtitle" yaml:"subtitle"`
	ProductsTitle   string `json:"productsTitle" yaml:"productsTitle"`
	ProductsContent string `json:"productsContent" yaml:"productsContent"`
}

// CompanyProfile is the singleton business profile. It is never
// deleted, only overwritten field by field.
type CompanyProfile struct {
	Name                string    `json:"name" yaml:"name"`
	LogoRef             string    `json:"logoRef" yaml:"logoRef"`
	WatermarkText       string    `json:"watermarkText" yaml:"watermarkText"`
	IntroText           string    `json:"introText" yaml:"introText"`
	Contacts            []Contact `json:"contacts" yaml:"contacts"`
	DefaultPlayerAspect Aspect    `json:"defaultPlayerAspect" yaml:"defaultPlayerAspect"`
	Landing             Landing   `json:"landing" yaml:"landing"`
}

// Catalog is the aggregate root: the company profile plus every event.
// It is read and rewritten as one unit. Version is the stamp of the
// persisted copy this value was read from; zero means never persisted.
type Catalog struct {
	Version uint64         `json:"version"`
	Company CompanyProfile `json:"company"`
	Events  []EventRecord  `json:"events"`
}

// Find returns the index of the event with the given id, or -1.
func (c *Catalog) Find(id string) int {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that shares no slices with c.
func (c Catalog) Clone() Catalog {
	out := c
	out.Company.Contacts = cloneSlice(c.Company.Contacts)
	if c.Events != nil {
		out.Events = make([]EventRecord, len(c.Events))
		for i := range c.Events {
			out.Events[i] = c.Events[i].Clone()
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
