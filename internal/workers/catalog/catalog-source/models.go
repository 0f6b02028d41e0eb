package catalogsource

// Row is one raw catalog record before price parsing and feature mapping.
type Row struct {
	Name        string
	Brand       string
	Price       string
	Description string
	FeatureText string
	Specs       map[string]string
}
