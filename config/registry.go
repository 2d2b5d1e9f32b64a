package config

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rushteam/cinesuggest/pipeline"
)

// 内置 Node 依赖进程级资源，由 NewFactory 注册；
// 不依赖资源的自定义 Node 可在 init 中调用 Register 注册，随后即可被 pipeline 配置引用。

// NodeBuilder 根据 config 构建 Node。
type NodeBuilder = func(map[string]any) (pipeline.Node, error)

var builtinTypes = []string{NodeRecallContent, NodeRecallCollaborative, NodeFilter, NodeTopN, NodeDiversity}

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑。内置类型不可覆盖。
// 例如：func init() { config.Register("rerank.shuffle", BuildShuffleNode) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil || slices.Contains(builtinTypes, typeName) {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回内置与已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := slices.Clone(builtinTypes)
	for t := range defaultBuilders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// DefaultFactory 返回只包含通过 Register 注册的 Node 的工厂。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidateNodes 校验所有 node 类型均受支持；若有未支持类型则返回包含已支持列表的错误。
func ValidateNodes(nodes []pipeline.NodeConfig) error {
	supported := SupportedTypes()
	for _, nc := range nodes {
		if !slices.Contains(supported, nc.Type) {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}
