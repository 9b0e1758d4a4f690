package osmimport

import (
	"github.com/joeblew999/plat-geo/internal/classify"
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
)

// DefaultLayers is the fixed, frozen-up-front layer-name dictionary the
// default classifier assigns features into. Spec section 4.5 leaves the
// real classification decision to a swappable scripting host out of
// scope for this repo; DefaultLayers/DefaultClassifier stand in for it
// with a small rule table so RunFeatures has something concrete to
// drive, the same way a production deployment would plug in its own
// scripted layer rules against the same classify.PendingFeature contract.
var DefaultLayers = packfile.NewLayerNames([]string{
	"water", "landuse", "building", "road", "boundary", "place", "poi",
})

// DefaultClassifier implements Classifier using simple tag matching
// against DefaultLayers, in the same tag-sniffing spirit as a real
// layer-classification script would use, minus the scripting host
// itself.
func DefaultClassifier(obj Object) *classify.PendingFeature {
	p := classify.New(obj.Geometry)

	layer, zoomMin, ok := classifyTags(obj.Tags)
	if !ok {
		return p
	}

	id, found := DefaultLayers.IndexOf(layer)
	if !found {
		return p
	}
	p.SetTargetLayer(id)
	p.SetApprovedMin(zoomMin)

	for k, v := range obj.Tags {
		p.AddMeta(k, packfile.MetaValue{Kind: packfile.MetaString, Str: v})
	}
	return p
}

// classifyTags is the rule table itself: first matching tag wins.
func classifyTags(tags map[string]string) (layer string, zoomMin uint8, ok bool) {
	switch {
	case tags["natural"] == "water" || tags["waterway"] != "":
		return "water", 4, true
	case tags["landuse"] != "":
		return "landuse", 8, true
	case tags["building"] != "":
		return "building", 13, true
	case tags["highway"] != "":
		return "road", highwayMinZoom(tags["highway"]), true
	case tags["boundary"] != "":
		return "boundary", 2, true
	case tags["place"] != "":
		return "place", 4, true
	case tags["shop"] != "" || tags["amenity"] != "":
		return "poi", 14, true
	default:
		return "", 0, false
	}
}

func highwayMinZoom(class string) uint8 {
	switch class {
	case "motorway", "trunk", "primary":
		return 6
	case "secondary", "tertiary":
		return 9
	default:
		return 12
	}
}

// BuildAreaGatedClassifier wraps base so that any feature it approves
// for a small-area polygon layer is re-gated by
// SetApprovedMinByArea, demonstrating spec section 4.5's
// set_approved_min_by_area contract (e.g. small landuse parcels only
// render from a higher zoom than large ones).
func BuildAreaGatedClassifier(base Classifier, gatedLayer string, pairs ...classify.AreaZoom) Classifier {
	gatedID, ok := DefaultLayers.IndexOf(gatedLayer)
	if !ok {
		return base
	}
	return func(obj Object) *classify.PendingFeature {
		p := base(obj)
		if p == nil || !p.Approved() || p.TargetLayer() != gatedID {
			return p
		}
		if p.Geometry().Type != fixedgeo.GeomPolygon {
			return p
		}
		p.SetApprovedMinByArea(pairs...)
		return p
	}
}
