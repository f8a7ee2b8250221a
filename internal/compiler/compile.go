package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

// Marker keys recognised in a query document.
const (
	MarkerSequence = "join_sequence"
	MarkerGraph    = "join"
)

// DuplicateEdgePolicy decides what happens when a graph has more than one
// relation between the same two indexes.
type DuplicateEdgePolicy string

const (
	// DuplicateEdgesFirst keeps the first relation in list order that
	// reaches a neighbour; later ones are skipped once it is visited.
	DuplicateEdgesFirst DuplicateEdgePolicy = "first"

	// DuplicateEdgesReject fails compilation with ErrCodeDuplicateEdge.
	DuplicateEdgesReject DuplicateEdgePolicy = "reject"
)

// ParseDuplicateEdgePolicy converts a config or flag value to a policy.
// The empty string selects DuplicateEdgesFirst.
func ParseDuplicateEdgePolicy(s string) (DuplicateEdgePolicy, error) {
	switch DuplicateEdgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateEdgesFirst:
		return DuplicateEdgesFirst, nil
	case DuplicateEdgesReject:
		return DuplicateEdgesReject, nil
	default:
		return "", fmt.Errorf("invalid duplicate edge policy %q (must be %q or %q)",
			s, DuplicateEdgesFirst, DuplicateEdgesReject)
	}
}

// Mode selects which markers a compile call rewrites.
type Mode string

const (
	ModeGraph    Mode = "graph"
	ModeSequence Mode = "sequence"
	ModeAll      Mode = "all" // graphs, then sequences
)

// ParseMode converts a flag value to a Mode. The empty string selects ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeGraph:
		return ModeGraph, nil
	case ModeSequence:
		return ModeSequence, nil
	default:
		return "", fmt.Errorf("invalid mode %q (must be %q, %q or %q)", s, ModeGraph, ModeSequence, ModeAll)
	}
}

// Compiler compiles join markers in query documents.
// A Compiler holds no per-call state and is safe for concurrent use.
type Compiler struct {
	logger     *slog.Logger
	duplicates DuplicateEdgePolicy
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for debug output. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDuplicateEdges sets the graph duplicate edge policy.
func WithDuplicateEdges(policy DuplicateEdgePolicy) Option {
	return func(c *Compiler) {
		c.duplicates = policy
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		duplicates: DuplicateEdgesFirst,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = New()

// CompileSequences compiles every join_sequence marker in d with default
// options.
func CompileSequences(d doc.Value) (doc.Value, error) {
	out, _, err := defaultCompiler.CompileSequences(d)
	return out, err
}

// CompileGraphs compiles every join marker in d with default options.
func CompileGraphs(d doc.Value) (doc.Value, error) {
	out, _, err := defaultCompiler.CompileGraphs(d)
	return out, err
}

// CompileSequences locates every join_sequence marker in d, compiles it and
// splices the result back in place of the marker value.
//
// d is never modified. On error the returned document is nil.
func (c *Compiler) CompileSequences(d doc.Value) (doc.Value, *Report, error) {
	return c.run(d, MarkerSequence)
}

// CompileGraphs locates every join marker in d, compiles it and splices the
// result back in place of the marker value.
//
// d is never modified. On error the returned document is nil.
func (c *Compiler) CompileGraphs(d doc.Value) (doc.Value, *Report, error) {
	return c.run(d, MarkerGraph)
}

// Translate compiles join markers and then join_sequence markers, the order
// a search request goes through before it is sent to the cluster.
func (c *Compiler) Translate(d doc.Value) (doc.Value, *Report, error) {
	out, report, err := c.CompileGraphs(d)
	if err != nil {
		return nil, nil, err
	}
	out, seqReport, err := c.CompileSequences(out)
	if err != nil {
		return nil, nil, err
	}
	report.merge(seqReport)
	return out, report, nil
}

// Compile dispatches on mode.
func (c *Compiler) Compile(mode Mode, d doc.Value) (doc.Value, *Report, error) {
	switch mode {
	case ModeGraph:
		return c.CompileGraphs(d)
	case ModeSequence:
		return c.CompileSequences(d)
	case ModeAll, "":
		return c.Translate(d)
	default:
		return nil, nil, fmt.Errorf("invalid mode %q", mode)
	}
}

// Validate checks every marker occurrence of both kinds in d and returns all
// errors found, in document order. Nothing is spliced.
func (c *Compiler) Validate(d doc.Value) []error {
	var errs []error
	for _, marker := range []string{MarkerGraph, MarkerSequence} {
		for _, occ := range doc.Locate(d, marker) {
			if _, _, err := c.compileOccurrence(marker, occ); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := checkPlacement(d, occ); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// run compiles every occurrence of marker, then splices. Splicing only
// starts once every occurrence has compiled.
func (c *Compiler) run(d doc.Value, marker string) (doc.Value, *Report, error) {
	report := &Report{}
	occurrences := doc.Locate(d, marker)
	if len(occurrences) == 0 {
		return d, report, nil
	}

	compiled := make([]doc.Value, len(occurrences))
	for i, occ := range occurrences {
		value, joins, err := c.compileOccurrence(marker, occ)
		if err != nil {
			return nil, nil, err
		}
		compiled[i] = value
		report.Occurrences = append(report.Occurrences, OccurrenceReport{
			Marker: marker,
			Path:   occ.Path,
			Joins:  joins,
		})
		c.logger.Debug("compiled marker",
			"marker", marker,
			"path", occ.Path.String(),
			"joins", len(joins))
	}

	out := d
	for i, occ := range occurrences {
		if err := checkPlacement(d, occ); err != nil {
			return nil, nil, err
		}
		var err error
		out, err = doc.Replace(out, occ.Path, compiled[i])
		if err != nil {
			return nil, nil, fmt.Errorf("splice %s: %w", occ.Path, err)
		}
	}
	return out, report, nil
}

// compileOccurrence parses and compiles one marker value.
func (c *Compiler) compileOccurrence(marker string, occ doc.Occurrence) (doc.Value, []JoinRecord, error) {
	b := &build{logger: c.logger, duplicates: c.duplicates}

	var (
		out doc.Value
		err error
	)
	switch marker {
	case MarkerSequence:
		var seq joinspec.Sequence
		seq, err = joinspec.ParseSequence(occ.Value)
		if err == nil {
			out, err = b.compileSequence(seq)
		}
	case MarkerGraph:
		var g *joinspec.Graph
		g, err = joinspec.ParseGraph(occ.Value)
		if err == nil {
			out, err = b.compileGraph(g)
		}
	default:
		return nil, nil, fmt.Errorf("unknown marker %q", marker)
	}
	if err != nil {
		return nil, nil, joinspec.AtPath(err, occ.Path)
	}
	return out, b.joins, nil
}

// checkPlacement requires the object holding the marker to hold nothing
// else, since splicing rewrites exactly that key.
func checkPlacement(root doc.Value, occ doc.Occurrence) error {
	parent, _ := doc.Get(root, occ.Path.Parent())
	if obj, ok := parent.(doc.Object); ok && len(obj) == 1 {
		return nil
	}
	err := joinspec.NewError(joinspec.KindPlacement, joinspec.ErrCodeMarkerSiblings,
		"The object at %s must only contain the join filter", occ.Path)
	err.Path = occ.Path
	return err
}

// build is the state of a single occurrence compilation.
type build struct {
	logger     *slog.Logger
	duplicates DuplicateEdgePolicy
	joins      []JoinRecord
}

// attach places c at pos and records it.
func (b *build) attach(pos position, c *Clause, negate bool) {
	pos.attach(c, negate)

	record := JoinRecord{
		Depth:      pos.depth(),
		SourcePath: c.SourcePath,
		TargetPath: c.TargetPath,
		Indices:    indexNames(c.Indices),
	}
	// Negation only applies inside a clause.
	if _, nested := pos.(*Filtered); nested {
		record.Negate = negate
	}
	b.joins = append(b.joins, record)
}
