package ethics

import "strings"

var spawnBlocklist = []string{"malware", "exploit", "hack", "attack", "virus"}
var executionBlocklist = []string{"delete_all", "format", "wipe", "destroy"}

// ValidateSpawn applies the pre-evaluation filter for agent_spawn, then
// traverses the tree. A name containing a blocked term is denied before the
// tree is ever consulted.
func (t *Tree) ValidateSpawn(name string, intents []string) (Decision, string) {
	lower := strings.ToLower(name)
	for _, term := range spawnBlocklist {
		if strings.Contains(lower, term) {
			return Deny, "pre_filter/spawn_blocklist"
		}
	}
	return t.Evaluate("agent_spawn", map[string]interface{}{"intents": intents})
}

// ValidateExecution applies the pre-evaluation filter for execution_validation.
func (t *Tree) ValidateExecution(agentID, intent string) (Decision, string) {
	lower := strings.ToLower(intent)
	for _, term := range executionBlocklist {
		if strings.Contains(lower, term) {
			return Deny, "pre_filter/execution_blocklist"
		}
	}
	return t.Evaluate("execution_validation", map[string]interface{}{
		"agent_id": agentID,
		"intent":   intent,
	})
}

// ValidatePlugin computes risk_level from the plugin's capability flags and
// passes it to the tree under plugin_validation.
func (t *Tree) ValidatePlugin(externalAccess, pluginCall bool) (Decision, string) {
	riskLevel := "low"
	switch {
	case externalAccess:
		riskLevel = "high"
	case pluginCall:
		riskLevel = "medium"
	}
	return t.Evaluate("plugin_validation", map[string]interface{}{"risk_level": riskLevel})
}

// ValidateRecovery is always Allow in the default configuration (spec §4.2).
func (t *Tree) ValidateRecovery(agentID string) (Decision, string) {
	return Allow, "pre_filter/recovery_default_allow"
}
