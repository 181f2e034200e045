// Package storage composes result sinks. The primary sink is the source of
// truth; mirrors receive a best-effort copy of every record.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Fanout appends each record to a primary sink and then to every mirror.
type Fanout struct {
	primary checker.ResultSink
	mirrors []checker.ResultSink
	logger  *zap.Logger
}

// NewFanout builds a Fanout. nil mirrors are ignored.
func NewFanout(primary checker.ResultSink, logger *zap.Logger, mirrors ...checker.ResultSink) (*Fanout, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary sink is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{primary: primary, logger: logger}
	for _, m := range mirrors {
		if m != nil {
			f.mirrors = append(f.mirrors, m)
		}
	}
	return f, nil
}

// Append writes rec to the primary sink. A primary failure is returned; mirror
// failures are logged and do not fail the record.
func (f *Fanout) Append(ctx context.Context, rec checker.ResultRecord) error {
	if err := f.primary.Append(ctx, rec); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Append(ctx, rec); err != nil {
			f.logger.Warn("mirror append failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	errs := []error{f.primary.Close()}
	for _, m := range f.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
