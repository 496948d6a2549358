// Package codec encodes typed records into log payloads.
//
// The log itself stores opaque bytes. Changing the codec of an existing log
// makes older records undecodable, so the codec name is part of a log's
// configuration.
package codec

import (
	"fmt"
	"slices"
	"sync"
)

// Codec turns values into record payloads and back.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name is the stable identifier used by ByName.
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{
		JSON{}.Name():    JSON{},
		GoJSON{}.Name():  GoJSON{},
		MsgPack{}.Name(): MsgPack{},
	}
)

// Register makes c available through ByName. Names are unique.
func Register(c Codec) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[c.Name()]; ok {
		return fmt.Errorf("codec %q already registered", c.Name())
	}
	registry[c.Name()] = c
	return nil
}

// ByName returns a registered codec.
func ByName(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Encode marshals v with c, or with Default if c is nil.
func Encode(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record with %s: %w", c.Name(), err)
	}
	return b, nil
}

// Decode unmarshals data into a new T with c, or with Default if c is nil.
func Decode[T any](c Codec, data []byte) (T, error) {
	if c == nil {
		c = Default
	}
	var v T
	if err := c.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode record with %s: %w", c.Name(), err)
	}
	return v, nil
}
