// Package builder implements the three model builders: PCAModelBuilder,
// PosteriorModelBuilder and ReducedVarianceModelBuilder. Builders are
// not thread-safe per instance; each builder call returns a fresh,
// fully-initialized, immutable StatisticalModel.
package builder

import "github.com/go-pdm/statismo/pkg/logging"

// Option configures a builder at construction.
type Option func(*options)

type options struct {
	sink logging.Sink
}

// WithLogger injects an optional logging sink. Builders default to a
// no-op sink when none is supplied.
func WithLogger(sink logging.Sink) Option {
	return func(o *options) { o.sink = sink }
}

func newOptions(opts []Option) options {
	o := options{}
	for _, apply := range opts {
		apply(&o)
	}
	o.sink = logging.Or(o.sink)
	return o
}
