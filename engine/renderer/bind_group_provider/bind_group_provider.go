package bind_group_provider

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label prefixed to every bind group this provider creates.
	label string

	dev device.Device

	// live holds every bind group created by this provider and not yet released.
	live map[device.BindGroupID]struct{}
	// built is the cumulative number of bind groups created.
	built int
}

// BindGroupProvider builds bind groups from a property packet and the store that backs it.
// A bind group is only rebuilt when the caller asks for it, which uniform stores do when a
// texture or sampler binding changed. Buffer contents never force a rebuild since stores
// rewrite their backing storage in place.
//
// Usage pattern:
//  1. A uniform store implements EntrySource over its values
//  2. The store calls Provide with its cached bind group and whether its resources changed
//  3. Provide returns the cached group, or releases it and builds a new one
//  4. The store calls Release when it is destroyed
type BindGroupProvider interface {
	// Provide returns a bind group for packet whose entries come from source.
	// If rebuild is false and current is valid, current is returned unchanged. Otherwise
	// current is released, the packet layout is built if needed, and one entry per packet
	// descriptor is requested from source in binding order. A descriptor the source cannot
	// resolve is logged and skipped; the device then rejects the incomplete group, which
	// panics.
	//
	// Parameters:
	//   - packet: the packet describing the bind group layout
	//   - source: the entry source, normally a uniform store
	//   - current: the currently cached bind group, or device.InvalidBindGroup
	//   - rebuild: whether current must be replaced
	//
	// Returns:
	//   - device.BindGroupID: the bind group to use
	Provide(packet shader.PropertyPacket, source EntrySource, current device.BindGroupID, rebuild bool) device.BindGroupID

	// Release releases a bind group created by this provider. Invalid or unknown handles are ignored.
	//
	// Parameters:
	//   - id: the bind group to release
	Release(id device.BindGroupID)

	// ReleaseAll releases every live bind group.
	ReleaseAll()

	// Live returns the number of bind groups created and not yet released.
	//
	// Returns:
	//   - int: the live bind group count
	Live() int

	// Built returns the cumulative number of bind groups created.
	//
	// Returns:
	//   - int: the number of bind groups built since construction
	Built() int

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider that creates bind groups on dev.
//
// Parameters:
//   - dev: the device bind groups are created on
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(dev device.Device, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:    &sync.Mutex{},
		label: "bind group",
		dev:   dev,
		live:  make(map[device.BindGroupID]struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Provide(packet shader.PropertyPacket, source EntrySource, current device.BindGroupID, rebuild bool) device.BindGroupID {
	if !rebuild && current != device.InvalidBindGroup {
		return current
	}
	if current != device.InvalidBindGroup {
		p.Release(current)
	}

	packet.BuildLayout(p.dev)

	descs := packet.Sorted()
	entries := make([]device.BindGroupEntry, 0, len(descs))
	for _, d := range descs {
		entry, ok := source.BindGroupEntry(d)
		if !ok {
			common.Logger().Warn("bind_group_provider: no entry for binding, skipping", "name", d.Name, "group", d.Group, "binding", d.Binding)
			continue
		}
		entries = append(entries, entry)
	}

	label := fmt.Sprintf("%s %s (group %d)", p.label, packet.Tier(), packet.BindGroupIndex())
	id, err := p.dev.CreateBindGroup(label, packet.Layout(), entries)
	if err != nil {
		panic(fmt.Sprintf("bind_group_provider: failed to create bind group %q: %v", label, err))
	}

	p.mu.Lock()
	p.live[id] = struct{}{}
	p.built++
	p.mu.Unlock()

	common.Logger().Debug("bind_group_provider: built bind group", "label", label, "entries", len(entries))
	return id
}

func (p *bindGroupProvider) Release(id device.BindGroupID) {
	if id == device.InvalidBindGroup {
		return
	}
	p.mu.Lock()
	_, ok := p.live[id]
	delete(p.live, id)
	p.mu.Unlock()

	if ok {
		p.dev.ReleaseBindGroup(id)
	}
}

func (p *bindGroupProvider) ReleaseAll() {
	p.mu.Lock()
	live := p.live
	p.live = make(map[device.BindGroupID]struct{})
	p.mu.Unlock()

	for id := range live {
		p.dev.ReleaseBindGroup(id)
	}
}

func (p *bindGroupProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *bindGroupProvider) Built() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.built
}

func (p *bindGroupProvider) Label() string {
	return p.label
}
