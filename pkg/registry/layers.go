package registry

import (
	"fmt"
	"sort"

	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/ratelimit"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
)

// layerFactories maps the names shares list under "layers" to constructors.
// Every layer of a share reports into the same PipelineMetrics.
var layerFactories = map[string]func(m metrics.PipelineMetrics) vfs.Layer{
	"worm": func(m metrics.PipelineMetrics) vfs.Layer {
		return worm.New(worm.WithMetrics(m))
	},
	"ratelimit": func(m metrics.PipelineMetrics) vfs.Layer {
		return ratelimit.New(ratelimit.WithMetrics(m))
	},
}

// KnownLayers returns the layer names a share may list, sorted.
func KnownLayers() []string {
	names := make([]string, 0, len(layerFactories))
	for name := range layerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewLayers builds layers by name, keeping their order.
//
// The first name becomes the outermost layer, so it sees each request
// before the others. Unknown and duplicated names are rejected.
func NewLayers(names []string, m metrics.PipelineMetrics) ([]vfs.Layer, error) {
	seen := make(map[string]bool, len(names))
	layers := make([]vfs.Layer, 0, len(names))

	for _, name := range names {
		factory, ok := layerFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown layer %q (known: %v)", name, KnownLayers())
		}
		if seen[name] {
			return nil, fmt.Errorf("layer %q listed twice", name)
		}
		seen[name] = true
		layers = append(layers, factory(m))
	}
	return layers, nil
}
