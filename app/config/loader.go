package config

import (
	"fmt"
	nurl "net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads organization seed definitions from a directory of YAML files.
type Loader struct {
	seedsDir string
}

func NewLoader(seedsDir string) *Loader {
	return &Loader{seedsDir: seedsDir}
}

// LoadAll loads every YAML file from the seeds directory. A missing directory
// is not an error; running without seeds is a valid deployment. Organizations
// repeated across files collapse to the last definition.
func (l *Loader) LoadAll() ([]OrganizationSeed, error) {
	if _, err := os.Stat(l.seedsDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.seedsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(l.seedsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	index := make(map[string]int)
	var seeds []OrganizationSeed

	for _, file := range files {
		loaded, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		for _, seed := range loaded {
			if err := validate(seed); err != nil {
				return nil, fmt.Errorf("invalid seed in %s: %w", file, err)
			}
			if i, ok := index[seed.Name]; ok {
				seeds[i] = seed
				continue
			}
			index[seed.Name] = len(seeds)
			seeds = append(seeds, seed)
		}
	}

	return seeds, nil
}

func (l *Loader) loadFile(path string) ([]OrganizationSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return file.Organizations, nil
}

func validate(seed OrganizationSeed) error {
	if seed.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	if seed.NewsURL == "" {
		return fmt.Errorf("organization %q: news_url is required", seed.Name)
	}

	u, err := nurl.Parse(seed.NewsURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("organization %q: news_url %q is not a valid http(s) url", seed.Name, seed.NewsURL)
	}

	return nil
}
