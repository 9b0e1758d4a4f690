// Package classify implements the layer-classifier boundary described by
// spec section 4.5: the contract a scripting host (out of scope per spec
// section 1) uses to decide whether an ingested object becomes a stored
// feature, which layer it belongs to, at which zoom range it's visible,
// and what metadata it carries.
package classify

import (
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
)

// PendingFeature is the mutable object a classifier script is handed for
// each ingested OSM/coastline object; its state after classification
// finishes becomes the stored packfile.Feature. Geometry is computed
// lazily: most classification decisions (tag matching, layer choice)
// never need it, and fixedgeo.Area forces it only for
// SetApprovedMinByArea.
type PendingFeature struct {
	approved     bool
	zoomMin      uint8
	zoomMax      uint8
	layer        uint32
	metaIndex    map[string]int
	meta         []packfile.MetaEntry
	readGeometry func() fixedgeo.Geometry
	geometry     *fixedgeo.Geometry
}

// New creates a PendingFeature not yet approved for any zoom, with no
// target layer. readGeometry is called at most once, the first time
// Geometry or SetApprovedMinByArea needs it.
func New(readGeometry func() fixedgeo.Geometry) *PendingFeature {
	return &PendingFeature{
		zoomMin:      fixedgeo.InvalidZoomLevel,
		zoomMax:      fixedgeo.InvalidZoomLevel,
		layer:        packfile.InvalidLayerID,
		metaIndex:    make(map[string]int),
		readGeometry: readGeometry,
	}
}

// SetApproved marks the feature visible for min <= zoom <= max.
func (p *PendingFeature) SetApproved(min, max uint8) {
	p.approved = true
	p.zoomMin = min
	p.zoomMax = max
}

// SetApprovedMin marks the feature visible from zoom upward, per spec
// section 4.5's equivalence set_approved_min(z) == set_approved(z,
// kMaxZoomLevel+1).
func (p *PendingFeature) SetApprovedMin(zoom uint8) {
	p.SetApproved(zoom, fixedgeo.MaxZoomLevel+1)
}

// AreaZoom is one (zoom, maxArea) threshold pair for
// SetApprovedMinByArea: the feature becomes visible from zoom upward the
// first time its area is below maxArea. A maxArea of -1 always matches,
// letting the last pair act as a catch-all minimum zoom.
type AreaZoom struct {
	Zoom    uint8
	MaxArea float64
}

// SetApprovedMinByArea forces geometry evaluation and walks pairs in
// order, calling SetApprovedMin at the first pair whose MaxArea the
// feature's area (fixedgeo.Area, always non-negative for this purpose)
// falls under. If no pair matches, the feature is left unapproved.
func (p *PendingFeature) SetApprovedMinByArea(pairs ...AreaZoom) {
	area := absFloat(fixedgeo.Area(p.Geometry()))
	for _, pair := range pairs {
		if pair.MaxArea < 0 || area < pair.MaxArea {
			p.SetApprovedMin(pair.Zoom)
			return
		}
	}
}

// SetTargetLayer records the layer id this feature should be stored
// under (an index into the ingest run's packfile.LayerNames dictionary).
func (p *PendingFeature) SetTargetLayer(layer uint32) {
	p.layer = layer
}

// AddMeta appends a (key, value) metadata pair, overwriting any earlier
// entry with the same key (last write wins) so repeated classifier
// passes over the same object can refine earlier decisions.
func (p *PendingFeature) AddMeta(key string, value packfile.MetaValue) {
	if idx, ok := p.metaIndex[key]; ok {
		p.meta[idx].Value = value
		return
	}
	p.metaIndex[key] = len(p.meta)
	p.meta = append(p.meta, packfile.MetaEntry{Key: key, Value: value})
}

// Approved reports whether the feature has been approved for any zoom.
func (p *PendingFeature) Approved() bool { return p.approved }

// ZoomRange returns the approved visibility range.
func (p *PendingFeature) ZoomRange() (min, max uint8) { return p.zoomMin, p.zoomMax }

// TargetLayer returns the assigned layer id, or packfile.InvalidLayerID
// if SetTargetLayer was never called.
func (p *PendingFeature) TargetLayer() uint32 { return p.layer }

// Metadata returns the accumulated metadata, in first-added order.
func (p *PendingFeature) Metadata() []packfile.MetaEntry { return p.meta }

// Geometry forces and caches the feature's geometry.
func (p *PendingFeature) Geometry() fixedgeo.Geometry {
	if p.geometry == nil {
		g := p.readGeometry()
		p.geometry = &g
	}
	return *p.geometry
}

// ToFeature builds the packfile.Feature this classification produced,
// for a feature being stored under id. Returns false if the feature was
// never approved.
func (p *PendingFeature) ToFeature(id uint64) (packfile.Feature, bool) {
	if !p.approved {
		return packfile.Feature{}, false
	}
	return packfile.Feature{
		ID:       id,
		Layer:    p.layer,
		ZoomMin:  p.zoomMin,
		ZoomMax:  p.zoomMax,
		Metadata: p.meta,
		Geometry: p.Geometry(),
	}, true
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
