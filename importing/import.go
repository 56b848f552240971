// Package importing streams OSM data into a fresh tree. It is the bulk
// path of the boundary: node coordinates (and way bounds where the file
// carries node locations) are projected and handed to the OMT loader in
// batches.
package importing

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"geoindex/geometry"
	"geoindex/index"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

// batchSize is the number of entries handed to one Load call.
const batchSize = 10000

// Import reads the given .osm or .osm.pbf file and bulk loads all objects
// with usable coordinates into a new tree. Payloads are "node/<id>" and
// "way/<id>" strings.
func Import(inputFile string, maxEntries int) (*index.RTree[string], error) {
	if !strings.HasSuffix(inputFile, ".osm") && !strings.HasSuffix(inputFile, ".pbf") {
		return nil, errors.Errorf("Input file %s must be an .osm or .pbf file", inputFile)
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open input file %s", inputFile)
	}
	defer f.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(inputFile, ".osm") {
		scanner = osmxml.New(context.Background(), f)
	} else {
		scanner = osmpbf.New(context.Background(), f, 1)
	}
	defer scanner.Close()

	sigolo.Debug("Start processing geometries from input data")
	importStartTime := time.Now()

	tree := index.New[string](maxEntries)
	batch := make([]*index.Node[string], 0, batchSize)
	var imported, skipped int

	for scanner.Scan() {
		entry, ok := toEntry(scanner.Object())
		if !ok {
			skipped++
			continue
		}

		batch = append(batch, entry)
		imported++

		if len(batch) == batchSize {
			if err = tree.Load(batch); err != nil {
				return nil, errors.Wrap(err, "Unable to load batch into index")
			}
			batch = batch[:0]
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "Unable to scan input file %s", inputFile)
	}

	if len(batch) > 0 {
		if err = tree.Load(batch); err != nil {
			return nil, errors.Wrap(err, "Unable to load batch into index")
		}
	}

	importDuration := time.Since(importStartTime)
	sigolo.Infof("Imported %d objects in %s (skipped %d without coordinates)", imported, importDuration, skipped)

	return tree, nil
}

// toEntry converts an OSM object into an index entry. Ways only qualify
// when the file embeds node locations, relations are not resolved.
func toEntry(obj osm.Object) (*index.Node[string], bool) {
	switch osmObj := obj.(type) {
	case *osm.Node:
		env, err := geometry.Envelope(geometry.NewPoint(orb.Point{osmObj.Lon, osmObj.Lat}))
		if err != nil {
			sigolo.Tracef("Skip node %d: %v", osmObj.ID, err)
			return nil, false
		}
		return index.NewEntry(env, "node/"+strconv.FormatInt(int64(osmObj.ID), 10)), true

	case *osm.Way:
		bound, ok := wayBound(osmObj)
		if !ok {
			return nil, false
		}
		env, err := geometry.Project(bound)
		if err != nil {
			sigolo.Tracef("Skip way %d: %v", osmObj.ID, err)
			return nil, false
		}
		return index.NewEntry(env, "way/"+strconv.FormatInt(int64(osmObj.ID), 10)), true
	}

	return nil, false
}

func wayBound(way *osm.Way) (orb.Bound, bool) {
	bound := orb.Bound{
		Min: orb.Point{180, 90},
		Max: orb.Point{-180, -90},
	}

	found := false
	for _, wayNode := range way.Nodes {
		if wayNode.Lon == 0 && wayNode.Lat == 0 {
			// Files without embedded locations leave way nodes zeroed.
			continue
		}
		found = true
		bound = bound.Extend(orb.Point{wayNode.Lon, wayNode.Lat})
	}

	return bound, found
}
