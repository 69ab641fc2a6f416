package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/corpora/pkg/classify"
	"github.com/praetorian-inc/corpora/pkg/container"
	"github.com/praetorian-inc/corpora/pkg/pathfilter"
	"github.com/praetorian-inc/corpora/pkg/types"
)

var (
	// ErrSplitFragment is returned for a top-level input that is one
	// piece of a multi-volume archive.
	ErrSplitFragment = errors.New("split archive fragment is not a processable unit")

	// ErrHandledElsewhere is returned for a top-level input whose
	// extension belongs to a format-specific producer.
	ErrHandledElsewhere = errors.New("handled by a format-specific producer")
)

// DefaultMaxContainerDepth bounds nested container expansion.
const DefaultMaxContainerDepth = 4

// DefaultHandledElsewhere lists extensions excluded from the generic corpus.
var DefaultHandledElsewhere = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".db", ".sqlite", ".sqlite3",
}

// DefaultBinaryExtensions lists extensions counted as binary without
// reading their bytes.
var DefaultBinaryExtensions = []string{
	".pyc", ".pyo", ".pyd", ".so", ".dll", ".exe", ".bin",
	".obj", ".o", ".a", ".lib", ".dylib", ".bundle", ".class",
	".jar", ".war", ".ear", ".apk", ".ipa", ".app", ".dmg",
	".iso", ".img", ".raw", ".dat", ".mdb",
	".accdb", ".odb", ".hdf5", ".nc", ".mat", ".pkl", ".pickle",
	".npy", ".npz", ".pt", ".pth", ".h5", ".hdf", ".fits",
	".parquet", ".feather", ".orc", ".avro", ".pb",
}

// Config controls an Encoder.
type Config struct {
	// Filter adds ignore rules to the built-in ones. Nil applies the
	// built-in rules only.
	Filter *pathfilter.Filter

	// Capabilities decides which containers can be opened. Nil means
	// container.DefaultCapabilities.
	Capabilities *container.Capabilities

	// HandledElsewhere and BinaryExtensions override the default
	// extension sets when non-nil.
	HandledElsewhere []string
	BinaryExtensions []string

	// MaxFileSize skips larger entries (0 = no limit).
	MaxFileSize int64

	// Workers is the number of concurrent readers for top-level entries.
	Workers int

	// SkipContainers disables nested container expansion; nested
	// containers are then classified by content like any other file.
	SkipContainers bool

	// MaxContainerDepth bounds nesting (0 = DefaultMaxContainerDepth).
	MaxContainerDepth int

	Logger *slog.Logger

	// Now stamps document headers. Nil means time.Now.
	Now func() time.Time
}

// Encoder turns directories, containers and files into corpus documents.
// An Encoder holds no per-invocation state and may be reused.
type Encoder struct {
	cfg       Config
	caps      *container.Capabilities
	handled   map[string]bool
	binaryExt map[string]bool
	maxDepth  int
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// NewEncoder creates an Encoder.
func NewEncoder(cfg Config) *Encoder {
	e := &Encoder{
		cfg:       cfg,
		caps:      cfg.Capabilities,
		handled:   extensionSet(cfg.HandledElsewhere, DefaultHandledElsewhere),
		binaryExt: extensionSet(cfg.BinaryExtensions, DefaultBinaryExtensions),
		maxDepth:  cfg.MaxContainerDepth,
		workers:   cfg.Workers,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if e.caps == nil {
		e.caps = container.DefaultCapabilities()
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxContainerDepth
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func extensionSet(exts, defaults []string) map[string]bool {
	if exts == nil {
		exts = defaults
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// IsHandledElsewhere reports whether name has a producer-owned extension.
func (e *Encoder) IsHandledElsewhere(name string) bool {
	return e.handled[strings.ToLower(path.Ext(name))]
}

// Encode dispatches on the kind of input: directory, container or plain
// file. Split fragments return ErrSplitFragment and producer-owned files
// return ErrHandledElsewhere.
func (e *Encoder) Encode(ctx context.Context, inputPath string) (*Document, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return e.EncodeDir(ctx, inputPath)
	}
	if pathfilter.IsSplitFragment(inputPath) {
		return nil, fmt.Errorf("%s: %w", inputPath, ErrSplitFragment)
	}
	if container.DetectFormat(inputPath) != container.FormatNone {
		return e.EncodeContainer(ctx, inputPath)
	}
	if e.IsHandledElsewhere(inputPath) {
		return nil, fmt.Errorf("%s: %w", inputPath, ErrHandledElsewhere)
	}
	return e.EncodeFile(ctx, inputPath)
}

// EncodeDir encodes every regular file below root.
// Phase 1 walks the tree and collects entries in walk order; phase 2
// reads and classifies them, in parallel when Workers > 1, and reassembles
// the results in walk order.
func (e *Encoder) EncodeDir(ctx context.Context, root string) (*Document, error) {
	title, _ := RecordPath(filepath.Base(filepath.Clean(root)))
	doc := NewDocument(FolderTitle(title), e.now())

	// WalkDir does not follow a symlinked root.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	var entries []types.Entry
	walkErrs := NewStats()
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == walkRoot {
				return err
			}
			e.logger.Warn("cannot read path", "path", p, "error", err)
			walkErrs.Total++
			walkErrs.Errors++
			walkErrs.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			e.logger.Debug("skipping non-regular file", "path", p)
			return nil
		}

		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		entries = append(entries, fileEntry(p, e.entryPath(types.NormalizePath(filepath.ToSlash(rel)), walkErrs), d))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	records, stats, err := e.visitAll(ctx, entries)
	if err != nil {
		return nil, err
	}
	stats.merge(walkErrs)
	doc.Records = records
	doc.Stats = stats
	return doc, nil
}

// EncodeContainer encodes the members of a container file. Member paths
// are relative to the container root.
func (e *Encoder) EncodeContainer(ctx context.Context, containerPath string) (*Document, error) {
	rd, format, err := e.caps.OpenFile(containerPath)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	title, _ := RecordPath(filepath.Base(containerPath))
	doc := NewDocument(ArchiveTitle(format.Label(), title), e.now())
	out := newOutcome()
	parent := types.FileProvenance{FilePath: containerPath}
	if err := e.visitMembers(ctx, rd, "", parent, 1, out); err != nil {
		return nil, err
	}
	doc.Records = out.records
	doc.Stats = out.stats
	return doc, nil
}

// EncodeFile encodes one plain file. The path filter is not applied to an
// explicitly named file.
func (e *Encoder) EncodeFile(ctx context.Context, filePath string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	out := newOutcome()
	name := e.entryPath(filepath.Base(filePath), out.stats)
	doc := NewDocument(FileTitle(name), e.now())
	out.stats.Total++

	if e.cfg.MaxFileSize > 0 && info.Size() > e.cfg.MaxFileSize {
		out.stats.Skipped++
		e.logger.Info("file exceeds size limit", "path", filePath, "size", info.Size())
	} else {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filePath, err)
		}
		e.record(name, classify.Classify(content), content, out)
	}

	doc.Records = out.records
	doc.Stats = out.stats
	return doc, nil
}

// entryPath returns the header form of a normalized entry path and counts
// the paths it rewrites.
func (e *Encoder) entryPath(p string, st *Stats) string {
	out, changed := RecordPath(p)
	if changed {
		st.RenamedPaths++
		e.logger.Warn("entry path rewritten for corpus header", "path", p, "written", out)
	}
	return out
}

func fileEntry(diskPath, rel string, d fs.DirEntry) types.Entry {
	var size int64
	if info, err := d.Info(); err == nil {
		size = info.Size()
	}
	return types.Entry{
		Path:       rel,
		SizeBytes:  size,
		Source:     types.SourcePlainFile,
		Provenance: types.FileProvenance{FilePath: diskPath},
		Open: func() ([]byte, error) {
			return os.ReadFile(diskPath)
		},
	}
}

// outcome collects the records and counts produced by one unit of work.
type outcome struct {
	records []Record
	stats   *Stats
}

func newOutcome() *outcome {
	return &outcome{stats: NewStats()}
}

// visitAll visits top-level entries and returns their records in entry
// order regardless of the number of workers.
func (e *Encoder) visitAll(ctx context.Context, entries []types.Entry) ([]Record, *Stats, error) {
	if e.workers <= 1 || len(entries) < 2 {
		out := newOutcome()
		for _, entry := range entries {
			if err := e.visit(ctx, entry, 0, out); err != nil {
				return nil, nil, err
			}
		}
		return out.records, out.stats, nil
	}

	outs := make([]*outcome, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, entry := range entries {
		outs[i] = newOutcome()
		g.Go(func() error {
			return e.visit(gctx, entry, 0, outs[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	merged := newOutcome()
	for _, o := range outs {
		merged.records = append(merged.records, o.records...)
		merged.stats.merge(o.stats)
	}
	return merged.records, merged.stats, nil
}

// visit handles one entry. Per-entry failures are counted and logged;
// only cancellation is returned as an error.
func (e *Encoder) visit(ctx context.Context, entry types.Entry, depth int, out *outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st := out.stats
	st.Total++
	p := entry.Path

	if reason, ignored := e.cfg.Filter.Reason(p); ignored {
		st.addIgnored(p, reason.Category)
		return nil
	}
	if pathfilter.IsSplitFragment(p) {
		st.Fragments++
		st.Skipped++
		e.logger.Debug("skipping split archive fragment", "path", p)
		return nil
	}
	if pathfilter.IsModelFile(p) {
		e.record(p, classify.ModelMarker(p), nil, out)
		return nil
	}

	ext := strings.ToLower(path.Ext(p))
	if e.handled[ext] {
		st.HandledElsewhere++
		if entry.Source == types.SourcePlainFile && entry.Provenance != nil {
			st.Deferred = append(st.Deferred, entry.Provenance.Path())
		}
		return nil
	}

	if format := container.DetectFormat(p); format != container.FormatNone && !e.cfg.SkipContainers && depth < e.maxDepth {
		return e.expand(ctx, entry, format, depth+1, out)
	}

	if e.binaryExt[ext] {
		st.addBinary(p, types.BinaryOther)
		return nil
	}
	if e.cfg.MaxFileSize > 0 && entry.SizeBytes > e.cfg.MaxFileSize {
		st.Skipped++
		e.logger.Info("entry exceeds size limit", "path", p, "size", entry.SizeBytes)
		return nil
	}

	content, err := entry.Read()
	if err != nil {
		st.Errors++
		st.Skipped++
		e.logger.Warn("cannot read entry", "path", p, "error", err)
		return nil
	}
	e.record(p, classify.Classify(content), content, out)
	return nil
}

// record applies a classification result to the outcome.
func (e *Encoder) record(p string, res types.ClassificationResult, content []byte, out *outcome) {
	st := out.stats
	switch res.Kind {
	case types.KindEmpty:
		st.Empty++
	case types.KindBinary:
		st.addBinary(p, res.Binary)
	case types.KindModelMarker:
		st.Markers++
		out.records = append(out.records, Record{Path: p, Body: res.Text, Kind: res.Kind, Encoding: res.Encoding})
	case types.KindText:
		st.Processed++
		if hasCollision(res.Text) {
			st.Collisions++
			e.logger.Warn("body contains corpus delimiters", "path", p)
		}
		out.records = append(out.records, Record{
			Path:     p,
			Body:     res.Text,
			Kind:     res.Kind,
			Encoding: res.Encoding,
			ID:       types.ComputeContentID(content),
		})
	}
}

// expand opens a nested container and visits its members inline, their
// paths prefixed by the container path. A container that cannot be opened
// is counted as skipped.
func (e *Encoder) expand(ctx context.Context, entry types.Entry, format container.Format, depth int, out *outcome) error {
	st := out.stats
	if e.cfg.MaxFileSize > 0 && entry.SizeBytes > e.cfg.MaxFileSize {
		st.Skipped++
		e.logger.Info("container exceeds size limit", "path", entry.Path, "size", entry.SizeBytes)
		return nil
	}

	data, err := entry.Read()
	if err != nil {
		st.Errors++
		st.Skipped++
		e.logger.Warn("cannot read container", "path", entry.Path, "error", err)
		return nil
	}

	rd, err := e.caps.Open(format, entry.Path, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		st.Skipped++
		e.logger.Warn("cannot open nested container", "path", entry.Path, "format", string(format), "error", err)
		return nil
	}
	defer rd.Close()

	st.Containers++
	return e.visitMembers(ctx, rd, entry.Path, entry.Provenance, depth, out)
}

// visitMembers visits container members sorted by name.
func (e *Encoder) visitMembers(ctx context.Context, rd container.Reader, prefix string, parent types.Provenance, depth int, out *outcome) error {
	members, err := rd.Members()
	if err != nil {
		out.stats.Errors++
		out.stats.Skipped++
		e.logger.Warn("cannot list container", "path", prefix, "error", err)
		return nil
	}

	sorted := make([]container.Member, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, m := range sorted {
		if !m.IsFile {
			continue
		}
		rel := e.entryPath(types.NormalizePath(m.Name), out.stats)
		if rel == "" {
			continue
		}
		if prefix != "" {
			rel = prefix + "/" + rel
		}

		name := m.Name
		child := types.Entry{
			Path:       rel,
			SizeBytes:  m.Size,
			Source:     types.SourceContainerMember,
			Provenance: types.Nest(parent, name),
			Open: func() ([]byte, error) {
				return rd.ReadMember(name)
			},
		}
		if err := e.visit(ctx, child, depth, out); err != nil {
			return err
		}
	}
	return nil
}
