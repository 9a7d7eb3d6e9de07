// Package catalog ships the built-in stack variants.
//
// Two variants of the notes application are embedded. They describe the same
// application with different service sets and deliberately differ in how
// configuration reaches the containers:
//
//   - notes-worker runs a Celery background worker beside the API. Database
//     credentials and connection strings are ${VAR} placeholders, resolved
//     from an env file or explicit variables at deploy time. No metrics
//     collector.
//   - notes-monitoring runs a Prometheus collector beside the API with all
//     connection strings written inline. The collector's scrape config is
//     not part of the compose document; this package renders it and the
//     runner bind-mounts it at deploy time. No background worker.
//
// Neither variant is canonical. Both register on first boot.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/artpar/stackd/internal/core/domain"
)

//go:embed variants/notes-worker.yaml
var notesWorkerYAML string

//go:embed variants/notes-monitoring.yaml
var notesMonitoringYAML string

// Built-in variant names.
const (
	VariantWorker     = "notes-worker"
	VariantMonitoring = "notes-monitoring"
)

// ErrUnknownVariant indicates a name that matches no built-in variant.
var ErrUnknownVariant = errors.New("unknown variant")

// All returns the built-in variants. ReferenceIDs are left empty; the store
// assigns them on first registration.
func All() []domain.Variant {
	return []domain.Variant{workerVariant(), monitoringVariant()}
}

// Get returns the built-in variant with the given name or slug.
func Get(name string) (domain.Variant, error) {
	for _, v := range All() {
		if v.Name == name || v.Slug == name {
			return v, nil
		}
	}
	return domain.Variant{}, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
}

// DefaultVariables returns the default value of every variant variable that
// declares one. Variables without defaults (secrets) are absent from the map.
func DefaultVariables(v domain.Variant) map[string]string {
	vars := make(map[string]string, len(v.Variables))
	for _, vv := range v.Variables {
		if vv.Default != "" {
			vars[vv.Name] = vv.Default
		}
	}
	return vars
}

func workerVariant() domain.Variant {
	return domain.Variant{
		Name:        VariantWorker,
		Slug:        domain.Slugify(VariantWorker),
		Description: "Notes API with a Celery background worker. Credentials and connection strings come from an env file.",
		Version:     "1.0.0",
		ComposeYAML: notesWorkerYAML,
		Variables: []domain.Variable{
			{
				Name:     "POSTGRES_USER",
				Label:    "Postgres user",
				Type:     domain.VarTypeString,
				Default:  "amina",
				Required: true,
			},
			{
				Name:        "POSTGRES_PASSWORD",
				Label:       "Postgres password",
				Description: "No default; supply via env file or explicit variable",
				Type:        domain.VarTypePassword,
				Required:    true,
			},
			{
				Name:     "POSTGRES_DB",
				Label:    "Postgres database",
				Type:     domain.VarTypeString,
				Default:  "aminadb",
				Required: true,
			},
			{
				Name:        "DATABASE_URL",
				Label:       "Database connection string",
				Description: "Must agree with the Postgres credentials",
				Type:        domain.VarTypeString,
				Default:     "postgresql://amina:secret@db:5432/aminadb",
				Required:    true,
			},
			{
				Name:     "CELERY_BROKER_URL",
				Label:    "Celery broker URL",
				Type:     domain.VarTypeString,
				Default:  "redis://redis:6379/0",
				Required: true,
			},
			{
				Name:     "CELERY_RESULT_BACKEND",
				Label:    "Celery result backend",
				Type:     domain.VarTypeString,
				Default:  "redis://redis:6379/0",
				Required: true,
			},
			{
				Name:    "REDIS_URL",
				Label:   "Redis cache URL",
				Type:    domain.VarTypeString,
				Default: "redis://redis:6379/0",
			},
		},
	}
}

func monitoringVariant() domain.Variant {
	return domain.Variant{
		Name:        VariantMonitoring,
		Slug:        domain.Slugify(VariantMonitoring),
		Description: "Notes API with a Prometheus metrics collector. Connection strings are inline; the scrape config is rendered at deploy time.",
		Version:     "1.0.0",
		ComposeYAML: notesMonitoringYAML,
		ConfigFiles: []domain.ConfigFile{
			{
				Name:    "prometheus.yml",
				Path:    "/etc/prometheus/prometheus.yml",
				Content: defaultPrometheusYML,
				Mode:    "0644",
				Service: "prometheus",
			},
		},
	}
}
