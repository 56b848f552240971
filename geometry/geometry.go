// Package geometry holds the typed geometry model of the boundary layer.
// The index core never sees geometry documents, it only gets envelopes;
// this package is where lon/lat geometries become unit-square envelopes.
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

type Kind int

const (
	KindPoint Kind = iota
	KindPolygon
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolygon:
		return "Polygon"
	case KindCollection:
		return "GeometryCollection"
	}
	return "Unknown"
}

// Geometry is a tagged variant of the geometry kinds the index accepts.
type Geometry struct {
	kind    Kind
	point   orb.Point
	polygon orb.Polygon
	members []Geometry
}

func NewPoint(point orb.Point) Geometry {
	return Geometry{kind: KindPoint, point: point}
}

func NewPolygon(polygon orb.Polygon) Geometry {
	return Geometry{kind: KindPolygon, polygon: polygon}
}

func NewCollection(members ...Geometry) Geometry {
	return Geometry{kind: KindCollection, members: members}
}

// FromOrb converts a decoded orb geometry into the tagged model. Geometry
// kinds the index does not support produce an error instead of a guessed
// bounding box.
func FromOrb(g orb.Geometry) (Geometry, error) {
	switch geom := g.(type) {
	case orb.Point:
		return NewPoint(geom), nil
	case orb.Polygon:
		return NewPolygon(geom), nil
	case orb.Collection:
		if len(geom) == 0 {
			return Geometry{}, errors.New("empty geometry collection has no bounds")
		}
		members := make([]Geometry, 0, len(geom))
		for _, member := range geom {
			converted, err := FromOrb(member)
			if err != nil {
				return Geometry{}, err
			}
			members = append(members, converted)
		}
		return NewCollection(members...), nil
	}
	return Geometry{}, errors.Errorf("unsupported geometry type %s", g.GeoJSONType())
}

func (g Geometry) Kind() Kind {
	return g.kind
}

// Bound returns the lon/lat bounding rectangle of the geometry.
func (g Geometry) Bound() orb.Bound {
	switch g.kind {
	case KindPoint:
		return orb.Bound{Min: g.point, Max: g.point}
	case KindPolygon:
		return g.polygon.Bound()
	default:
		bound := g.members[0].Bound()
		for _, member := range g.members[1:] {
			bound = bound.Union(member.Bound())
		}
		return bound
	}
}
