package chansel

import "github.com/joeycumines/logiface"

// chanOptions holds configuration resolved by Make.
type chanOptions struct {
	logger  *logiface.Logger[logiface.Event]
	metrics bool
}

// Option configures a channel created by Make.
type Option interface {
	applyChan(*chanOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyChanFunc func(*chanOptions) error
}

func (x *optionImpl) applyChan(opts *chanOptions) error {
	return x.applyChanFunc(opts)
}

// WithLogger attaches a structured logger to the channel. Park, handoff, and
// close transitions are logged at debug and trace levels, carrying the
// channel id and waiter ids. A nil logger disables logging (the default).
func WithLogger[E logiface.Event](logger *logiface.Logger[E]) Option {
	return &optionImpl{func(opts *chanOptions) error {
		if logger != nil {
			opts.logger = logger.Logger()
		}
		return nil
	}}
}

// WithMetrics enables per-channel operation counters, available via
// Chan.Metrics.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *chanOptions) error {
		opts.metrics = enabled
		return nil
	}}
}

// resolveOptions applies Option instances to chanOptions.
func resolveOptions(opts []Option) (*chanOptions, error) {
	cfg := new(chanOptions)
	for _, opt := range opts {
		if opt == nil {
			continue // skip nil options gracefully
		}
		if err := opt.applyChan(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
