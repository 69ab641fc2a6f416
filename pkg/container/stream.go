package container

import (
	"errors"
	"fmt"
	"io"
)

// cacheLimit is the largest member body kept in memory from the listing
// pass. Larger members are re-read by scanning the stream again.
const cacheLimit = 32 << 20

// errStop ends an iteration early.
var errStop = errors.New("stop iteration")

// visitFunc receives one member and a reader positioned at its body.
type visitFunc func(m Member, body io.Reader) error

// streamReader adapts sequential formats (tar, rar, gzip) that can only be
// read from the start. The listing pass caches small bodies so that the
// usual list-then-read-everything access costs a single decompression.
type streamReader struct {
	iterate func(visit visitFunc) error

	listed  bool
	members []Member
	cache   map[string][]byte
}

func newStreamReader(iterate func(visit visitFunc) error) *streamReader {
	return &streamReader{iterate: iterate, cache: make(map[string][]byte)}
}

func (s *streamReader) Members() ([]Member, error) {
	if s.listed {
		return s.members, nil
	}

	seen := make(map[string]bool)
	err := s.iterate(func(m Member, body io.Reader) error {
		if seen[m.Name] {
			return nil
		}
		seen[m.Name] = true
		s.members = append(s.members, m)
		if m.Size > cacheLimit {
			return nil
		}
		data, err := io.ReadAll(io.LimitReader(body, cacheLimit+1))
		if err != nil || len(data) > cacheLimit {
			// ReadMember rescans and reports any failure.
			return nil
		}
		s.cache[m.Name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.listed = true
	return s.members, nil
}

func (s *streamReader) ReadMember(name string) ([]byte, error) {
	if data, ok := s.cache[name]; ok {
		return data, nil
	}

	var (
		data  []byte
		found bool
	)
	err := s.iterate(func(m Member, body io.Reader) error {
		if m.Name != name {
			return nil
		}
		var err error
		data, err = io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", name, ErrMemberNotFound)
	}
	return data, nil
}

func (s *streamReader) Close() error {
	s.cache = nil
	return nil
}
