// Package naming allocates output file and directory names that do not
// collide with anything already on the filesystem.
//
// Candidates are probed in a fixed order: the bare name, the name with a
// timestamp suffix, the name with a timestamp and a random four digit
// suffix, and finally the name with a timestamp and an increasing counter.
// The first free candidate is reserved by creating it, so two sequential
// calls for the same base never return the same path.
package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/afero"
)

const (
	timestampLayout = "20060102_150405"
	randomAttempts  = 10
	maxCounter      = 100000
)

// ErrExhausted is returned when no free candidate was found.
var ErrExhausted = errors.New("no free name available")

// Allocator hands out unused paths. It keeps no state between calls beyond
// its clock and random source.
type Allocator struct {
	fs   afero.Fs
	now  func() time.Time
	rand *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock sets the time source used for timestamp suffixes.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// WithRand sets the random source used for four digit suffixes.
func WithRand(r *rand.Rand) Option {
	return func(a *Allocator) {
		a.rand = r
	}
}

// New creates an Allocator on fsys. A nil fsys means the OS filesystem.
func New(fsys afero.Fs, opts ...Option) *Allocator {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	a := &Allocator{
		fs:   fsys,
		now:  time.Now,
		rand: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fs returns the filesystem the allocator reserves names on.
func (a *Allocator) Fs() afero.Fs {
	return a.fs
}

// AllocateFile reserves base+ext, or a suffixed variant of it, as an empty
// file and returns its path. base may include directories, which must
// already exist.
func (a *Allocator) AllocateFile(base, ext string) (string, error) {
	return a.allocate(base, ext, func(name string) error {
		f, err := a.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		return f.Close()
	})
}

// AllocateDir reserves base, or a suffixed variant of it, as an empty
// directory and returns its path.
func (a *Allocator) AllocateDir(base string) (string, error) {
	return a.allocate(base, "", func(name string) error {
		return a.fs.Mkdir(name, 0o755)
	})
}

func (a *Allocator) allocate(base, ext string, reserve func(string) error) (string, error) {
	next := a.candidates(base, ext)
	for {
		name, ok := next()
		if !ok {
			return "", fmt.Errorf("allocating %s%s: %w", base, ext, ErrExhausted)
		}
		if exists, err := afero.Exists(a.fs, name); err != nil {
			return "", fmt.Errorf("checking %s: %w", name, err)
		} else if exists {
			continue
		}

		err := reserve(name)
		if err == nil {
			return name, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("reserving %s: %w", name, err)
	}
}

// candidates returns an iterator over the probing order for one call. The
// timestamp is taken once so every suffixed candidate shares it.
func (a *Allocator) candidates(base, ext string) func() (string, bool) {
	stamp := a.now().Format(timestampLayout)
	step := 0
	return func() (string, bool) {
		defer func() { step++ }()
		switch {
		case step == 0:
			return base + ext, true
		case step == 1:
			return fmt.Sprintf("%s_%s%s", base, stamp, ext), true
		case step < 2+randomAttempts:
			return fmt.Sprintf("%s_%s_%04d%s", base, stamp, 1000+a.rand.IntN(9000), ext), true
		default:
			counter := step - (2 + randomAttempts) + 1
			if counter > maxCounter {
				return "", false
			}
			return fmt.Sprintf("%s_%s_c%d%s", base, stamp, counter, ext), true
		}
	}
}
