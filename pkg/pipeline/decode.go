package pipeline

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/praetorian-inc/corpora/pkg/corpus"
)

// DecodeResult describes one decoded corpus.
type DecodeResult struct {
	Corpus   string
	Dir      string
	Files    []corpus.WrittenFile
	Strategy corpus.Strategy
	// Discarded counts records whose path sanitized to nothing.
	Discarded int
	// Removed reports whether the source corpus was deleted.
	Removed bool
}

// Decode reconstitutes the files recorded in corpusPath. The source is
// deleted after a successful write unless keep is set. A corpus without
// records returns corpus.ErrNoRecords and is left in place.
func (p *Pipeline) Decode(ctx context.Context, corpusPath string, keep bool) (*DecodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fsys := p.alloc.Fs()
	data, err := afero.ReadFile(fsys, corpusPath)
	if err != nil {
		return nil, err
	}

	files, discarded, strategy, err := corpus.Decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", corpusPath, err)
	}
	if strategy == corpus.StrategyLenient {
		p.logger.Info("record terminators missing, used lenient parsing", "corpus", corpusPath)
	}

	tree, err := corpus.NewTreeWriter(p.alloc, p.logger).WriteIn(p.outDir, corpusPath, files)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", corpusPath, err)
	}

	res := &DecodeResult{
		Corpus:    corpusPath,
		Dir:       tree.Dir,
		Files:     tree.Files,
		Strategy:  strategy,
		Discarded: discarded,
	}
	if keep {
		return res, nil
	}
	if err := fsys.Remove(corpusPath); err != nil {
		return res, fmt.Errorf("removing %s: %w", corpusPath, err)
	}
	res.Removed = true
	return res, nil
}
