package assets

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the assets Graft node.
const NodeID graft.ID = "adapter.assets"

// Factory creates a Builder once the pipeline configuration is known.
type Factory struct {
	Executor ports.Executor
	Resolver ports.SourceResolver
}

// NewBuilder returns a Builder for pipeline.
func (f *Factory) NewBuilder(pipeline *domain.Pipeline) *Builder {
	return NewBuilder(pipeline.Root, pipeline.Options, pipeline.LiveReload, f.Executor, f.Resolver)
}

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, fs.ResolverNodeID},
		Run: func(ctx context.Context) (*Factory, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			resolver, err := graft.Dep[ports.SourceResolver](ctx)
			if err != nil {
				return nil, err
			}
			return &Factory{Executor: executor, Resolver: resolver}, nil
		},
	})
}
