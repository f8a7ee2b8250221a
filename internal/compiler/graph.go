package compiler

import (
	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

// compileGraph traverses g depth first from its focus and returns the
// rendered list of clauses.
func (b *build) compileGraph(g *joinspec.Graph) (doc.Value, error) {
	if b.duplicates == DuplicateEdgesReject {
		if err := rejectDuplicateEdges(g); err != nil {
			return nil, err
		}
	}

	root := &list{}
	visited := make(map[string]bool)
	if err := b.visit(g, g.Focus, root, visited); err != nil {
		return nil, err
	}
	return root.value(), nil
}

// visit processes one index: its own filters first, then one clause per
// edge leading to an index not yet visited. The index is marked before its
// neighbours are looked at so cycles terminate.
func (b *build) visit(g *joinspec.Graph, index string, pos position, visited map[string]bool) error {
	if visited[index] {
		return nil
	}
	visited[index] = true

	if filters, ok := g.Filters[index]; ok {
		if err := mergeFilters(pos, filters); err != nil {
			return err
		}
	}

	for _, edge := range g.Relations {
		i := edge.Focused(index)
		if i < 0 {
			continue
		}
		source, target := edge[i], edge[1-i]
		if visited[target.Index] {
			b.logger.Debug("skipping edge to visited index",
				"edge", source.Raw+" -> "+target.Raw)
			continue
		}

		desc, ok := g.Lookup(target.Index)
		if !ok {
			return joinspec.NewError(joinspec.KindReference, joinspec.ErrCodeUnknownIndex,
				"Could not find index [%s] of relation [%s, %s] in the indexes field",
				target.Index, edge[0].Raw, edge[1].Raw)
		}

		jt := joinTarget{
			indices:          doc.Array{doc.String(desc.ID)},
			orderBy:          desc.OrderBy,
			maxTermsPerShard: desc.MaxTermsPerShard,
		}
		if desc.Type != "" {
			jt.types = doc.Array{doc.String(desc.Type)}
		}

		c := newClause(source.Path, target.Path, jt, pos.depth())
		b.attach(pos, c, false)

		if err := b.visit(g, target.Index, c.Query, visited); err != nil {
			return err
		}
	}
	return nil
}

// rejectDuplicateEdges fails when two relations join the same pair of
// indexes, whichever way round they are written.
func rejectDuplicateEdges(g *joinspec.Graph) error {
	seen := make(map[[2]string]int, len(g.Relations))
	for i, edge := range g.Relations {
		key := [2]string{edge[0].Index, edge[1].Index}
		if key[1] < key[0] {
			key[0], key[1] = key[1], key[0]
		}
		if first, ok := seen[key]; ok {
			return joinspec.NewError(joinspec.KindStructure, joinspec.ErrCodeDuplicateEdge,
				"Relations %d and %d both join [%s] and [%s]", first, i, key[0], key[1])
		}
		seen[key] = i
	}
	return nil
}
