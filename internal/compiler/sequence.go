package compiler

import (
	"fmt"

	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

// compileSequence builds the chain of clauses for seq into root and returns
// the rendered list.
func (b *build) compileSequence(seq joinspec.Sequence) (doc.Value, error) {
	root := &list{}
	if err := b.sequence(seq, root); err != nil {
		return nil, err
	}
	return root.value(), nil
}

// sequence walks seq from its last step to its first. Each step wraps the
// clause built so far, so the last step ends up outermost.
func (b *build) sequence(seq joinspec.Sequence, root *list) error {
	var cur position = root

	for i := len(seq) - 1; i > 0; i-- {
		rel, ok := seq[i].(*joinspec.RelationStep)
		if !ok {
			return fmt.Errorf("sequence step %d: expected a relation, got %T", i, seq[i])
		}
		next, err := b.relation(cur, rel)
		if err != nil {
			return err
		}
		cur = next
	}

	switch first := seq[0].(type) {
	case *joinspec.GroupStep:
		f, ok := cur.(*Filtered)
		if !ok {
			return fmt.Errorf("group at the root of a sequence")
		}
		branch := f.branch(first.Negate)
		b.logger.Debug("compiling group", "sequences", len(first.Group), "negate", first.Negate)
		for _, nested := range first.Group {
			if err := b.sequence(nested, branch); err != nil {
				return err
			}
		}
	case *joinspec.RelationStep:
		if _, err := b.relation(cur, first); err != nil {
			return err
		}
	default:
		return fmt.Errorf("sequence step 0: unexpected %T", seq[0])
	}
	return nil
}

// relation attaches the clause joining Relation[1] into Relation[0] at pos
// and returns its inner query.
func (b *build) relation(pos position, rel *joinspec.RelationStep) (*Filtered, error) {
	source, target := rel.Relation[0], rel.Relation[1]
	c := newClause(target.Path, source.Path, joinTarget{
		indices:          source.Indices,
		types:            source.Types,
		orderBy:          source.OrderBy,
		maxTermsPerShard: source.MaxTermsPerShard,
	}, pos.depth())
	b.attach(pos, c, rel.Negate)

	if err := mergeFilters(c.Query, source.Queries); err != nil {
		return nil, err
	}
	return c.Query, nil
}
