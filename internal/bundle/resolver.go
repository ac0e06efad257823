package bundle

import (
	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
)

// referencesAttr names the relationship created when a $ref resolves.
const referencesAttr = igc.AttributePrefix + "references"

// ResolveReferences runs strictly after every document has been added: for
// each node that declared a $ref, it looks up the target's asset by its
// original schema-tree path and creates a direct edge. A missing target
// fails that single resolution, never the run.
func (b *Builder) ResolveReferences() []igc.ReferenceEdge {
	edges := make([]igc.ReferenceEdge, 0, len(b.pending))
	var missing int
	for _, p := range b.pending {
		targetPath := normalizeSchemaPath(p.target)
		targetID, ok := b.byPath[targetPath]
		if !ok {
			missing++
			b.log.Error("Unresolvable $ref target, skipping edge",
				zap.String("from", p.fromID),
				zap.String("ref", p.target))
			continue
		}
		edges = append(edges, igc.ReferenceEdge{
			FromID: p.fromID,
			ToID:   targetID,
			Name:   referencesAttr,
		})
	}
	if missing > 0 {
		b.log.Warn("Reference resolution finished with missing targets", zap.Int("missing", missing))
	}
	return edges
}

// Bundle assembles the final batch document: every built asset plus the
// resolved reference edges.
func (b *Builder) Bundle() *igc.Bundle {
	return &igc.Bundle{
		BundleID:   b.bundleID,
		Assets:     b.Assets(),
		References: b.ResolveReferences(),
	}
}
