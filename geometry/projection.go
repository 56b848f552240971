package geometry

import (
	"geoindex/index"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Project maps a lon/lat bound into the unit square the index works on:
// u = lon/360 + 0.5 and v = lat/180 + 0.5. Coordinates outside the lon/lat
// value range are rejected so that a malformed document cannot place an
// envelope outside [0,1]².
func Project(bound orb.Bound) (index.Envelope, error) {
	for _, point := range []orb.Point{bound.Min, bound.Max} {
		if point.Lon() < -180 || point.Lon() > 180 || point.Lat() < -90 || point.Lat() > 90 {
			return index.Envelope{}, errors.Errorf("coordinate (%f, %f) is outside the lon/lat value range", point.Lon(), point.Lat())
		}
	}

	return index.Envelope{
		MinX: bound.Min.Lon()/360 + 0.5,
		MinY: bound.Min.Lat()/180 + 0.5,
		MaxX: bound.Max.Lon()/360 + 0.5,
		MaxY: bound.Max.Lat()/180 + 0.5,
	}, nil
}

// Envelope extracts the bound of the geometry and projects it in one step.
func Envelope(g Geometry) (index.Envelope, error) {
	return Project(g.Bound())
}

// Unproject is the inverse of Project and maps a unit-square envelope back
// to a lon/lat bound.
func Unproject(env index.Envelope) orb.Bound {
	return orb.Bound{
		Min: orb.Point{(env.MinX - 0.5) * 360, (env.MinY - 0.5) * 180},
		Max: orb.Point{(env.MaxX - 0.5) * 360, (env.MaxY - 0.5) * 180},
	}
}
