// internal/writer/fanout.go
package writer

import (
	"errors"

	"github.com/tamzrod/energy-control/internal/telemetry"
)

// Fanout delivers every result to all sinks. One failing sink
// does not stop the others.
type Fanout []Sink

func (f Fanout) Write(res telemetry.Result) error {
	var errs []error
	for _, s := range f {
		if err := s.Write(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
