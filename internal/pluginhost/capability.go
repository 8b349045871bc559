package pluginhost

// Capabilities declares what a plugin is permitted to do and how much
// resource headroom it gets. Loaded from a plugin's {id}.cap.yaml sibling;
// a missing manifest yields DefaultCapabilities.
type Capabilities struct {
	StateAccess    bool                   `yaml:"state_access"`
	PluginCall     bool                   `yaml:"plugin_call"`
	ExternalAccess bool                   `yaml:"external_access"`
	CPULimit       float32                `yaml:"cpu_limit"`
	MemoryLimit    uint32                 `yaml:"memory_limit"`
	Additional     map[string]interface{} `yaml:"additional,omitempty"`
}

// DefaultCapabilities returns the capability set applied when a plugin has
// no {id}.cap.yaml manifest: all access flags false, 5% CPU, 50 MB.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		StateAccess:    false,
		PluginCall:     false,
		ExternalAccess: false,
		CPULimit:       5.0,
		MemoryLimit:    50,
	}
}

// Metadata is free-form plugin authorship information.
type Metadata struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	ContentHash string `yaml:"content_hash,omitempty"`
}
