// Package factory provides a small generic registry used to build pluggable
// components from configuration. A component is named by a type string and
// configured by a raw settings map; its factory decodes the map into a typed
// struct and returns the concrete implementation. The metrics sink factory is
// the main user.
//
// Example:
//
//	reg := factory.NewRegistry[io.Reader]()
//	reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "foo"}})
package factory
