package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Prometheus Config Rendering
// =============================================================================

// PrometheusTargets holds the scrape targets for a rendered prometheus.yml.
// Zero values fall back to the in-network defaults: the app service by its
// compose DNS name, the collector scraping itself on localhost.
type PrometheusTargets struct {
	App    string // notes app metrics endpoint (host:port)
	Self   string // the collector itself
	Stackd string // stackd's own /metrics endpoint; empty omits the job
}

type promConfig struct {
	Global        promGlobal   `yaml:"global"`
	ScrapeConfigs []promScrape `yaml:"scrape_configs"`
}

type promGlobal struct {
	ScrapeInterval string `yaml:"scrape_interval"`
}

type promScrape struct {
	JobName       string       `yaml:"job_name"`
	MetricsPath   string       `yaml:"metrics_path,omitempty"`
	StaticConfigs []promStatic `yaml:"static_configs"`
}

type promStatic struct {
	Targets []string `yaml:"targets"`
}

// RenderPrometheusConfig renders the scrape config the monitoring variant
// bind-mounts into its collector: the app on 8000 at /metrics, the collector
// itself, and optionally stackd's own metrics endpoint.
func RenderPrometheusConfig(targets PrometheusTargets) (string, error) {
	if targets.App == "" {
		targets.App = "app:8000"
	}
	if targets.Self == "" {
		targets.Self = "localhost:9090"
	}

	cfg := promConfig{
		Global: promGlobal{ScrapeInterval: "15s"},
		ScrapeConfigs: []promScrape{
			{
				JobName:       "notes-app",
				MetricsPath:   "/metrics",
				StaticConfigs: []promStatic{{Targets: []string{targets.App}}},
			},
			{
				JobName:       "prometheus",
				StaticConfigs: []promStatic{{Targets: []string{targets.Self}}},
			},
		},
	}
	if targets.Stackd != "" {
		cfg.ScrapeConfigs = append(cfg.ScrapeConfigs, promScrape{
			JobName:       "stackd",
			MetricsPath:   "/metrics",
			StaticConfigs: []promStatic{{Targets: []string{targets.Stackd}}},
		})
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to render prometheus config: %w", err)
	}
	return string(out), nil
}

// defaultPrometheusYML is the content shipped with the monitoring variant.
var defaultPrometheusYML = mustRenderPrometheus(PrometheusTargets{})

func mustRenderPrometheus(targets PrometheusTargets) string {
	out, err := RenderPrometheusConfig(targets)
	if err != nil {
		panic(err)
	}
	return out
}
