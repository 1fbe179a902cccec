package dashboard

import (
	"github.com/jwalitptl/client-dashboard/internal/model"
	"github.com/jwalitptl/client-dashboard/pkg/logger"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

type Option func(*Controller)

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithAgeBrackets replaces the sidebar age presets.
func WithAgeBrackets(b []model.AgeBracket) Option {
	return func(c *Controller) {
		if len(b) > 0 {
			c.brackets = append([]model.AgeBracket(nil), b...)
		}
	}
}

// WithSequentialCounts fetches gender counts one at a time in catalog order
// instead of all at once.
func WithSequentialCounts(on bool) Option {
	return func(c *Controller) { c.sequentialCounts = on }
}

// WithCompactLayout closes the sidebar after every filter selection, the way
// narrow screens behave.
func WithCompactLayout(on bool) Option {
	return func(c *Controller) { c.compact = on }
}

func WithUserName(name string) Option {
	return func(c *Controller) { c.userName = name }
}
