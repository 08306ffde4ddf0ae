// Package config reads the store connection settings from the environment
// and the job manifest from covidload.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/covidlab/covidload/pkg/covidload"
)

// ErrManifestNotFound is returned when the manifest file does not exist.
// Callers can check for this with errors.Is(err, config.ErrManifestNotFound).
var ErrManifestNotFound = errors.New("manifest file not found")

// Env holds the connection settings read from the environment, typically
// via a .env file.
type Env struct {
	// MongoURI is the document store connection string (MONGO_URI).
	MongoURI string

	// Database is the destination database name (DATABASE_NAME).
	Database string
}

// EnvFromProcess reads connection settings from the process environment.
// Both MONGO_URI and DATABASE_NAME are required.
func EnvFromProcess() (Env, error) {
	env := Env{
		MongoURI: os.Getenv("MONGO_URI"),
		Database: os.Getenv("DATABASE_NAME"),
	}

	var errs []error
	if env.MongoURI == "" {
		errs = append(errs, fmt.Errorf("MONGO_URI must be set: %w", covidload.ErrInvalidConfig))
	}
	if env.Database == "" {
		errs = append(errs, fmt.Errorf("DATABASE_NAME must be set: %w", covidload.ErrInvalidConfig))
	}
	if err := errors.Join(errs...); err != nil {
		return Env{}, err
	}

	return env, nil
}

// JobSpec is one manifest entry mapping a source file to a collection.
type JobSpec struct {
	Name       string `yaml:"name"`
	Source     string `yaml:"source"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size,omitempty"`
}

// Manifest is the parsed covidload.yaml.
type Manifest struct {
	// BatchSize is the default batch size for jobs that do not set their
	// own. Zero means covidload.DefaultBatchSize.
	BatchSize int `yaml:"batch_size,omitempty"`

	Jobs []JobSpec `yaml:"jobs"`
}

// LoadManifest reads and validates the manifest at path. Validation is
// eager: a manifest with any invalid job is rejected as a whole.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w: %w", path, covidload.ErrInvalidConfig, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return &m, nil
}

func (m *Manifest) validate() error {
	var errs []error

	if len(m.Jobs) == 0 {
		errs = append(errs, covidload.ErrNoJobs)
	}
	if m.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size cannot be negative: %w", covidload.ErrInvalidConfig))
	}

	seen := make(map[string]bool, len(m.Jobs))
	for _, job := range m.LoadJobs() {
		if err := job.Validate(); err != nil {
			errs = append(errs, err)
		}
		if job.Name != "" && seen[job.Name] {
			errs = append(errs, fmt.Errorf("duplicate job name %q: %w", job.Name, covidload.ErrInvalidConfig))
		}
		seen[job.Name] = true
	}

	return errors.Join(errs...)
}

// LoadJobs converts manifest entries to load jobs in manifest order,
// applying the manifest-level batch size default.
func (m *Manifest) LoadJobs() []covidload.LoadJob {
	jobs := make([]covidload.LoadJob, 0, len(m.Jobs))
	for _, spec := range m.Jobs {
		size := spec.BatchSize
		if size == 0 {
			size = m.BatchSize
		}
		jobs = append(jobs, covidload.LoadJob{
			Name:       spec.Name,
			SourcePath: spec.Source,
			Collection: spec.Collection,
			BatchSize:  size,
		})
	}
	return jobs
}

// DefaultManifest is the built-in job list used when no covidload.yaml
// exists: the four raw COVID datasets the pipeline was built around.
func DefaultManifest(dataDir string) *Manifest {
	join := func(name string) string {
		return filepath.Join(dataDir, name)
	}
	return &Manifest{
		Jobs: []JobSpec{
			{
				Name:       "vacc-death-rate",
				Source:     join("covid-vaccinations-vs-covid-death-rate.csv"),
				Collection: "covid_vacc_death_rate",
			},
			{
				Name:       "vacc-manufacturer",
				Source:     join("covid-vaccine-doses-by-manufacturer.csv"),
				Collection: "covid_vacc_manufacturer",
			},
			{
				Name:       "oecd-health-expenditure",
				Source:     join("OECD_health_expenditure.csv"),
				Collection: "oecd_health_expenditure",
			},
			{
				Name:       "us-death-rates",
				Source:     join("united-states-rates-of-covid-19-deaths-by-vaccination-status.csv"),
				Collection: "us_death_rates",
			},
		},
	}
}
