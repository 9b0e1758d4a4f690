package packfile

// MetaCoding is the shared "feature-meta-coding" dictionary: an ordered,
// frequency-sorted list of (key, value) pairs common enough across the
// ingested data to be worth coding as a single varint index rather than
// writing inline on every feature. It is built once during ingest and
// frozen before any feature referencing it is serialized (spec section 3).
type MetaCoding struct {
	entries []MetaEntry
	index   map[string]int
}

// NewMetaCoding builds a frozen dictionary from entries, in the given
// order (callers are expected to have already frequency-sorted them).
func NewMetaCoding(entries []MetaEntry) *MetaCoding {
	c := &MetaCoding{
		entries: append([]MetaEntry(nil), entries...),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range c.entries {
		c.index[metaEntryKey(e)] = i
	}
	return c
}

// Lookup reports the dictionary index for an exact (key, value) match.
func (c *MetaCoding) Lookup(e MetaEntry) (int, bool) {
	if c == nil {
		return 0, false
	}
	idx, ok := c.index[metaEntryKey(e)]
	return idx, ok
}

// Get returns the entry stored at idx.
func (c *MetaCoding) Get(idx int) (MetaEntry, bool) {
	if c == nil || idx < 0 || idx >= len(c.entries) {
		return MetaEntry{}, false
	}
	return c.entries[idx], true
}

// Len reports the number of coded entries.
func (c *MetaCoding) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns the dictionary's (key, value) pairs in coded-index
// order.
func (c *MetaCoding) Entries() []MetaEntry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Serialize encodes the dictionary as a length-prefixed (key, value)
// list, for storage in the meta KV table under the
// "feature-meta-coding" key (spec section 3).
func (c *MetaCoding) Serialize() []byte {
	w := &varintWriter{}
	w.writeUvarint(uint64(c.Len()))
	for _, e := range c.Entries() {
		w.writeUvarint(uint64(len(e.Key)))
		w.writeBytes([]byte(e.Key))
		writeMetaValue(w, e.Value)
	}
	return w.buf
}

// DeserializeMetaCoding decodes a dictionary previously written by
// Serialize.
func DeserializeMetaCoding(data []byte) (*MetaCoding, error) {
	r := &varintReader{buf: data}
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	entries := make([]MetaEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		l, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		keyBytes, err := r.readBytes(int(l))
		if err != nil {
			return nil, err
		}
		val, err := readMetaValue(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MetaEntry{Key: string(keyBytes), Value: val})
	}
	return NewMetaCoding(entries), nil
}

func metaEntryKey(e MetaEntry) string {
	w := &varintWriter{}
	w.writeUvarint(uint64(len(e.Key)))
	w.writeBytes([]byte(e.Key))
	writeMetaValue(w, e.Value)
	return string(w.buf)
}

// LayerNames is the shared "layer-names" dictionary: an ordered list of
// layer name strings, with Feature.Layer indexing into it.
type LayerNames struct {
	names []string
	index map[string]uint32
}

// NewLayerNames builds a frozen dictionary from an ordered name list.
func NewLayerNames(names []string) *LayerNames {
	l := &LayerNames{
		names: append([]string(nil), names...),
		index: make(map[string]uint32, len(names)),
	}
	for i, n := range l.names {
		l.index[n] = uint32(i)
	}
	return l
}

// IndexOf reports the layer id for name, or (InvalidLayerID, false) if
// name isn't present.
func (l *LayerNames) IndexOf(name string) (uint32, bool) {
	if l == nil {
		return InvalidLayerID, false
	}
	idx, ok := l.index[name]
	if !ok {
		return InvalidLayerID, false
	}
	return idx, true
}

// Name returns the layer name stored at id.
func (l *LayerNames) Name(id uint32) (string, bool) {
	if l == nil || id >= uint32(len(l.names)) {
		return "", false
	}
	return l.names[id], true
}

// Len reports the number of layer names.
func (l *LayerNames) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Serialize encodes the dictionary as a length-prefixed string list, for
// storage in the meta KV table under the "layer-names" key.
func (l *LayerNames) Serialize() []byte {
	w := &varintWriter{}
	w.writeUvarint(uint64(len(l.names)))
	for _, n := range l.names {
		w.writeUvarint(uint64(len(n)))
		w.writeBytes([]byte(n))
	}
	return w.buf
}

// DeserializeLayerNames decodes a dictionary previously written by
// Serialize.
func DeserializeLayerNames(data []byte) (*LayerNames, error) {
	r := &varintReader{buf: data}
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		l, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		b, err := r.readBytes(int(l))
		if err != nil {
			return nil, err
		}
		names = append(names, string(b))
	}
	return NewLayerNames(names), nil
}
