package supervisor

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
)

// Switch is a boolean condition read once per scan: the global kill switch, or the
// declared planned-rest condition.
type Switch interface {
	Active(ctx context.Context) (bool, error)
}

// FlagSwitch is an in-memory switch, flipped through the API.
type FlagSwitch struct {
	on atomic.Bool
}

func NewFlagSwitch() *FlagSwitch {
	return &FlagSwitch{}
}

func (f *FlagSwitch) Set(on bool) {
	f.on.Store(on)
}

func (f *FlagSwitch) Active(context.Context) (bool, error) {
	return f.on.Load(), nil
}

// FileSwitch is active while a flag file exists.
type FileSwitch struct {
	Path string
}

func (f FileSwitch) Active(context.Context) (bool, error) {
	if f.Path == "" {
		return false, nil
	}
	_, err := os.Stat(f.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// AnySwitch is active if any of its members is. Member errors are only reported
// when no member is active.
type AnySwitch []Switch

func (a AnySwitch) Active(ctx context.Context) (bool, error) {
	var errs []error
	for _, s := range a {
		if s == nil {
			continue
		}
		active, err := s.Active(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if active {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
