package config

// SeedFile is one YAML file of organizations to track.
type SeedFile struct {
	Organizations []OrganizationSeed `yaml:"organizations"`
}

// OrganizationSeed describes an organization whose news page the pipeline
// should watch.
type OrganizationSeed struct {
	Name    string   `yaml:"name"`
	NewsURL string   `yaml:"news_url"`
	Website string   `yaml:"website"`
	Tags    []string `yaml:"tags"`
}
