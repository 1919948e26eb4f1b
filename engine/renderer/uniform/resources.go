package uniform

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	bgp "github.com/Carmen-Shannon/oxy-bind/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
)

// Resources bundles the collaborators a store needs to sync values and build bind groups.
// The renderer owns one Resources and passes it by value.
type Resources struct {
	Device     device.Device
	Allocator  allocator.Allocator
	Textures   texture.Manager
	BindGroups bgp.BindGroupProvider
}
