package uniform

type syncKey struct {
	store UniformStore
	field string
}

// FrameSyncRecord remembers which fields of shared stores were already supplied during the
// current frame, so camera and scene builtins are computed and written once per frame no
// matter how many materials read them.
type FrameSyncRecord struct {
	frame  uint64
	synced map[syncKey]struct{}
}

// NewFrameSyncRecord creates an empty record at frame zero.
func NewFrameSyncRecord() *FrameSyncRecord {
	return &FrameSyncRecord{synced: make(map[syncKey]struct{})}
}

// Reset starts a new frame, forgetting every mark.
func (r *FrameSyncRecord) Reset() {
	r.frame++
	clear(r.synced)
}

// Frame returns the number of Reset calls so far.
func (r *FrameSyncRecord) Frame() uint64 {
	return r.frame
}

// TryMark marks field of store as supplied this frame.
//
// Parameters:
//   - store: the shared store
//   - field: a builtin name, or "" for the store's sync itself
//
// Returns:
//   - bool: true if this is the first mark of the pair this frame
func (r *FrameSyncRecord) TryMark(store UniformStore, field string) bool {
	k := syncKey{store: store, field: field}
	if _, ok := r.synced[k]; ok {
		return false
	}
	r.synced[k] = struct{}{}
	return true
}

// Synced reports whether field of store was marked this frame.
func (r *FrameSyncRecord) Synced(store UniformStore, field string) bool {
	_, ok := r.synced[syncKey{store: store, field: field}]
	return ok
}
