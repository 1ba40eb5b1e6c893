package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/storage"
)

const collectTimeout = 10 * time.Second

// CategoryCollector reports stored totals per category at scrape time.
type CategoryCollector struct {
	repo  storage.ExpenseRepository
	log   zerolog.Logger
	total *prometheus.Desc
	count *prometheus.Desc
	up    *prometheus.Desc
}

// NewCategoryCollector returns a collector reading from repo.
func NewCategoryCollector(repo storage.ExpenseRepository, log zerolog.Logger) *CategoryCollector {
	return &CategoryCollector{
		repo: repo,
		log:  log,
		total: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "category", "amount_total"),
			"Sum of stored expense amounts per category",
			[]string{"category"}, nil,
		),
		count: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "category", "expenses"),
			"Number of stored expenses per category",
			[]string{"category"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "storage", "up"),
			"Whether the last read of category totals succeeded",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CategoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.count
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *CategoryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	totals, err := c.repo.CategoryTotals(ctx, nil, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read category totals")
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	for _, t := range totals {
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, t.Total.InexactFloat64(), t.Category)
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(t.Count), t.Category)
	}
}
