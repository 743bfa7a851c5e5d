package http

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// ProjectCounter reports the thought count of every loaded project.
type ProjectCounter interface {
	LoadedCounts() map[string]int
}

// ProjectCollector exports thoughtd_project_thoughts{project} for each
// project whose history is loaded. Projects that exist only on disk are not
// reported, so a scrape never triggers a load.
type ProjectCollector struct {
	source ProjectCounter
	desc   *prometheus.Desc
}

// NewProjectCollector creates a collector over source.
func NewProjectCollector(source ProjectCounter) *ProjectCollector {
	return &ProjectCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("thoughtd", "", "project_thoughts"),
			"Number of thoughts in each loaded project history",
			[]string{"project"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *ProjectCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *ProjectCollector) Collect(ch chan<- prometheus.Metric) {
	counts := c.source.LoadedCounts()
	projects := make([]string, 0, len(counts))
	for pid := range counts {
		projects = append(projects, pid)
	}
	sort.Strings(projects)

	for _, pid := range projects {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts[pid]), pid)
	}
}
