package metrics

import "github.com/kilianp07/gridplan/core/factory"

// Config lists the sinks to instantiate. Each entry names a registered sink
// type and carries its type-specific settings.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
