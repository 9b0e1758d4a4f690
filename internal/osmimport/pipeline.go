// Package osmimport orchestrates the two-pass OSM + coastline import
// described by spec section 5: pass 1 builds the hybrid node index
// sequentially; pass 2 runs a three-stage pipeline (serial read,
// parallel classify over a bounded worker pool, serial-in-order
// multipolygon assembly) and writes approved features into the tile
// database. PBF/shapefile parsing themselves are out of scope (spec
// section 1) — callers supply already-decoded nodes/objects.
package osmimport

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/joeblew999/plat-geo/internal/classify"
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/nodeidx"
	"github.com/joeblew999/plat-geo/internal/tileerr"
)

// Node is one decoded OSM node: its signed id and raw, 1e7-precision
// integer-degree coordinates.
type Node struct {
	ID       int64
	LonE7    int64
	LatE7    int64
}

// RunPass1 pushes every node from nodes into idx in order, applying
// spec section 4.1's coordinate offset fold, then flushes the builder.
func RunPass1(idx *nodeidx.Builder, nodes <-chan Node) error {
	for n := range nodes {
		x := fixedgeo.NodeCoordOffset(n.LonE7, false)
		y := fixedgeo.NodeCoordOffset(n.LatE7, true)
		if err := idx.Push(n.ID, uint32(x), uint32(y)); err != nil {
			return fmt.Errorf("osmimport: pass1 push id=%d: %w", n.ID, tileerr.ErrInconsistent)
		}
	}
	return idx.Finish()
}

// ObjectKind tags what kind of OSM primitive an Object wraps, since
// classification and multipolygon assembly treat them differently.
type ObjectKind uint8

const (
	KindNode ObjectKind = iota
	KindWay
	KindRelation
)

// Object is one decoded OSM primitive handed to pass 2, already resolved
// to fixed-point geometry (node coordinate lookups, way/relation member
// resolution are a parser's job, out of scope here).
type Object struct {
	ID       int64
	Kind     ObjectKind
	Tags     map[string]string
	Geometry func() fixedgeo.Geometry
}

// Classifier turns one decoded Object into a classification decision.
// Given to RunPass2 by the caller (the scripting host's real
// implementation is out of scope per spec section 1).
type Classifier func(Object) *classify.PendingFeature

// Sink receives approved features in the same order they were read from
// objects, one at a time, across a single goroutine — the pipeline's
// serial-in-order assembly stage.
type Sink interface {
	Write(classify.PendingFeature) error
}

// classifyResult threads a sequence number through the parallel stage so
// the collector can restore read order before handing results to Sink.
type classifyResult struct {
	seq     int
	feature *classify.PendingFeature
	err     error
}

// RunPass2 runs the three-stage import pipeline: objects are read
// serially from the input channel, classified concurrently across
// workers (default runtime.NumCPU() when workers <= 0), and assembled
// back into original order before reaching sink. No more than
// 4*workers objects are ever in flight between the read and assembly
// stages, bounding memory regardless of how far classification lags
// behind reads. progress, if non-nil, receives one Progress update per
// completed object.
func RunPass2(ctx context.Context, objects <-chan Object, classifier Classifier, sink Sink, workers int, progress *ProgressBus) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tokens := make(chan struct{}, 4*workers)

	jobs := make(chan struct {
		seq int
		obj Object
	})
	results := make(chan classifyResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					results <- classifyResult{seq: job.seq, err: ctx.Err()}
					continue
				default:
				}
				results <- classifyResult{seq: job.seq, feature: classifier(job.obj)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		seq := 0
		for obj := range objects {
			select {
			case <-ctx.Done():
				return
			case tokens <- struct{}{}:
			}
			jobs <- struct {
				seq int
				obj Object
			}{seq: seq, obj: obj}
			seq++
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]classifyResult)
	next := 0
	var processed int64
	for r := range results {
		<-tokens
		if r.err != nil {
			return fmt.Errorf("osmimport: pass2 classify seq=%d: %w", r.seq, r.err)
		}
		pending[r.seq] = r
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			processed++
			if res.feature != nil && res.feature.Approved() {
				if err := sink.Write(*res.feature); err != nil {
					return fmt.Errorf("osmimport: pass2 sink write: %w", err)
				}
			}
			if progress != nil {
				progress.Publish(Progress{Pass: "features", Processed: processed})
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
