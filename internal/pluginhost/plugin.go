package pluginhost

import "github.com/dop251/goja"

// Plugin is a loaded (or placeholder) bytecode module and its capability
// manifest. A placeholder may be attached to an agent by id before its
// module is resolved; it is not executable until Loaded is true.
type Plugin struct {
	ID           string
	Capabilities Capabilities
	Metadata     Metadata
	Module       *goja.Program
	Loaded       bool
}

func placeholder(id string) *Plugin {
	return &Plugin{ID: id, Capabilities: DefaultCapabilities(), Loaded: false}
}
