package shader

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// UnsetGroup is the bind group index of a packet nothing was inserted into.
const UnsetGroup uint32 = math.MaxUint32

// PropertyPacket is the set of bindings of one tier that share a bind group index.
// A packet is filled once during classification and is read-only afterward, except for
// the lazily built layout.
type PropertyPacket interface {
	// Insert adds a descriptor. Inserting a descriptor whose group differs from the packet's
	// group panics, since every binding of one tier must live in one bind group.
	//
	// Parameters:
	//   - desc: the descriptor to add
	Insert(desc BindingDescriptor)

	// BuildLayout creates the bind group layout on dev. It is a no-op if the layout already
	// exists or the packet is empty. Device failure panics.
	//
	// Parameters:
	//   - dev: the device that owns the layout
	BuildLayout(dev device.Device)

	// IsValid reports whether a group was ever set, meaning the packet is non-empty.
	IsValid() bool

	// Tier returns the update-frequency tier the packet was built for.
	Tier() Tier

	// BindGroupIndex returns the packet's bind group index, or UnsetGroup.
	BindGroupIndex() uint32

	// Properties returns the packet's descriptors keyed by name. Callers must not mutate it.
	Properties() map[string]BindingDescriptor

	// Property returns the descriptor for name.
	Property(name string) (BindingDescriptor, bool)

	// Sorted returns the descriptors ordered by binding index.
	Sorted() []BindingDescriptor

	// Layout returns the layout handle, or device.InvalidLayout before BuildLayout.
	Layout() device.LayoutID

	// ContentHash returns the order-independent hash of every descriptor's name, location and type.
	ContentHash() uint64

	// ReleaseLayout releases the layout on dev so a later BuildLayout creates a new one.
	ReleaseLayout(dev device.Device)
}

type propertyPacket struct {
	mu         *sync.Mutex
	tier       Tier
	group      uint32
	properties map[string]BindingDescriptor
	layout     device.LayoutID
	hash       uint64
}

var _ PropertyPacket = &propertyPacket{}

// NewPropertyPacket creates an empty packet for tier.
//
// Parameters:
//   - tier: the tier the packet belongs to
//
// Returns:
//   - PropertyPacket: the empty packet
func NewPropertyPacket(tier Tier) PropertyPacket {
	return &propertyPacket{
		mu:         &sync.Mutex{},
		tier:       tier,
		group:      UnsetGroup,
		properties: make(map[string]BindingDescriptor),
	}
}

// descriptorHash hashes the identity of a descriptor: its name, location and data type.
func descriptorHash(d BindingDescriptor) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(d.Name))
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], d.Group)
	binary.LittleEndian.PutUint32(buf[4:], d.Binding)
	binary.LittleEndian.PutUint32(buf[8:], uint32(d.DataType))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func (p *propertyPacket) Insert(desc BindingDescriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.group == UnsetGroup {
		p.group = desc.Group
	} else if p.group != desc.Group {
		panic(fmt.Sprintf("shader: %s packet holds group %d but %q is in group %d", p.tier, p.group, desc.Name, desc.Group))
	}
	if old, ok := p.properties[desc.Name]; ok {
		p.hash ^= descriptorHash(old)
	}
	p.properties[desc.Name] = desc
	p.hash ^= descriptorHash(desc)
}

func (p *propertyPacket) BuildLayout(dev device.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.layout != device.InvalidLayout || len(p.properties) == 0 {
		return
	}

	sorted := p.sortedLocked()
	entries := make([]wgpu.BindGroupLayoutEntry, len(sorted))
	for i, d := range sorted {
		entries[i] = d.LayoutEntry()
	}

	label := fmt.Sprintf("%s layout (group %d)", p.tier, p.group)
	layout, err := dev.CreateBindGroupLayout(label, entries)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to create bind group layout %q: %v", label, err))
	}
	p.layout = layout
	common.Logger().Debug("shader: built bind group layout", "tier", p.tier.String(), "group", p.group, "entries", len(entries))
}

func (p *propertyPacket) IsValid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.group != UnsetGroup
}

func (p *propertyPacket) Tier() Tier {
	return p.tier
}

func (p *propertyPacket) BindGroupIndex() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.group
}

func (p *propertyPacket) Properties() map[string]BindingDescriptor {
	return p.properties
}

func (p *propertyPacket) Property(name string) (BindingDescriptor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.properties[name]
	return d, ok
}

func (p *propertyPacket) Sorted() []BindingDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedLocked()
}

func (p *propertyPacket) sortedLocked() []BindingDescriptor {
	out := make([]BindingDescriptor, 0, len(p.properties))
	for _, d := range p.properties {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Binding < out[j].Binding })
	return out
}

func (p *propertyPacket) Layout() device.LayoutID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

func (p *propertyPacket) ContentHash() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hash
}

func (p *propertyPacket) ReleaseLayout(dev device.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.layout != device.InvalidLayout {
		dev.ReleaseBindGroupLayout(p.layout)
		p.layout = device.InvalidLayout
	}
}
