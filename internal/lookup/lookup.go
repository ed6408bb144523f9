// Package lookup finds the repository a change belongs to, for URLs that
// only carry a change number.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/gerritnav/internal/log"
)

// Resolver maps a change number to its repository.
type Resolver interface {
	ProjectFor(ctx context.Context, changeNum int) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, changeNum int) (string, error)

// ProjectFor calls f.
func (f ResolverFunc) ProjectFor(ctx context.Context, changeNum int) (string, error) {
	return f(ctx, changeNum)
}

// NotFoundError reports a change no resolver knows about.
type NotFoundError struct {
	ChangeNum int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("change %d not found", e.ChangeNum)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Chain asks each resolver in turn and returns the first repository found.
// A resolver that fails with anything other than *NotFoundError does not
// stop the chain; its error is returned only if no later resolver succeeds.
type Chain []Resolver

// ProjectFor implements Resolver.
func (c Chain) ProjectFor(ctx context.Context, changeNum int) (string, error) {
	var firstErr error
	for _, r := range c {
		project, err := r.ProjectFor(ctx, changeNum)
		if err == nil {
			return project, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsNotFound(err) {
			log.Warn(log.CatLookup, "resolver failed", "change", changeNum, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return "", firstErr
	}
	return "", &NotFoundError{ChangeNum: changeNum}
}
