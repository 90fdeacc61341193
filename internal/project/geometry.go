package project

import (
	"encoding/json"
	"fmt"
)

// GeometryKind names a supported GeoJSON geometry type.
type GeometryKind string

const (
	KindPoint           GeometryKind = "Point"
	KindMultiPoint      GeometryKind = "MultiPoint"
	KindLineString      GeometryKind = "LineString"
	KindMultiLineString GeometryKind = "MultiLineString"
	KindPolygon         GeometryKind = "Polygon"
	KindMultiPolygon    GeometryKind = "MultiPolygon"
)

// Position is [lng, lat] or [lng, lat, alt].
type Position []float64

// Geometry is a tagged union over the supported GeoJSON geometries. Only the
// field matching Kind is set.
type Geometry struct {
	Kind            GeometryKind
	Point           Position
	MultiPoint      []Position
	LineString      []Position
	MultiLineString [][]Position
	Polygon         [][]Position
	MultiPolygon    [][][]Position
}

// NewPolygon builds a polygon geometry from its rings.
func NewPolygon(rings ...[]Position) Geometry {
	return Geometry{Kind: KindPolygon, Polygon: rings}
}

// NewPoint builds a point geometry.
func NewPoint(lng, lat float64) Geometry {
	return Geometry{Kind: KindPoint, Point: Position{lng, lat}}
}

type geometryJSON struct {
	Type        GeometryKind    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON renders the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch g.Kind {
	case KindPoint:
		coords = g.Point
	case KindMultiPoint:
		coords = g.MultiPoint
	case KindLineString:
		coords = g.LineString
	case KindMultiLineString:
		coords = g.MultiLineString
	case KindPolygon:
		coords = g.Polygon
	case KindMultiPolygon:
		coords = g.MultiPolygon
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Kind)
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(geometryJSON{Type: g.Kind, Coordinates: raw})
}

// UnmarshalJSON decodes and validates a GeoJSON geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding geometry: %w", err)
	}
	if len(raw.Coordinates) == 0 {
		return fmt.Errorf("geometry %q has no coordinates", raw.Type)
	}

	out := Geometry{Kind: raw.Type}
	var err error
	switch raw.Type {
	case KindPoint:
		if err = json.Unmarshal(raw.Coordinates, &out.Point); err == nil {
			err = validatePosition(out.Point)
		}
	case KindMultiPoint:
		if err = json.Unmarshal(raw.Coordinates, &out.MultiPoint); err == nil {
			err = validatePositions(out.MultiPoint, 1)
		}
	case KindLineString:
		if err = json.Unmarshal(raw.Coordinates, &out.LineString); err == nil {
			err = validatePositions(out.LineString, 2)
		}
	case KindMultiLineString:
		if err = json.Unmarshal(raw.Coordinates, &out.MultiLineString); err == nil {
			for _, line := range out.MultiLineString {
				if err = validatePositions(line, 2); err != nil {
					break
				}
			}
		}
	case KindPolygon:
		if err = json.Unmarshal(raw.Coordinates, &out.Polygon); err == nil {
			err = validatePolygon(out.Polygon)
		}
	case KindMultiPolygon:
		if err = json.Unmarshal(raw.Coordinates, &out.MultiPolygon); err == nil {
			for _, poly := range out.MultiPolygon {
				if err = validatePolygon(poly); err != nil {
					break
				}
			}
		}
	default:
		return fmt.Errorf("unsupported geometry type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("invalid %s: %w", raw.Type, err)
	}

	*g = out
	return nil
}

func validatePosition(p Position) error {
	if len(p) < 2 || len(p) > 3 {
		return fmt.Errorf("position must have 2 or 3 values, got %d", len(p))
	}
	return nil
}

func validatePositions(ps []Position, minLen int) error {
	if len(ps) < minLen {
		return fmt.Errorf("need at least %d positions, got %d", minLen, len(ps))
	}
	for _, p := range ps {
		if err := validatePosition(p); err != nil {
			return err
		}
	}
	return nil
}

// Rings must be closed and have at least four positions.
func validatePolygon(rings [][]Position) error {
	if len(rings) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for i, ring := range rings {
		if err := validatePositions(ring, 4); err != nil {
			return fmt.Errorf("ring %d: %w", i, err)
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return fmt.Errorf("ring %d is not closed", i)
		}
	}
	return nil
}

// GeoShape is a GeoJSON Feature attached to a project.
type GeoShape struct {
	Geometry   Geometry
	Properties map[string]any
}

type featureJSON struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// MarshalJSON renders the shape as a GeoJSON Feature.
func (s GeoShape) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(featureJSON{Type: "Feature", Geometry: s.Geometry, Properties: props})
}

// UnmarshalJSON accepts a GeoJSON Feature.
func (s *GeoShape) UnmarshalJSON(data []byte) error {
	var f featureJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Type != "" && f.Type != "Feature" {
		return fmt.Errorf("expected Feature, got %q", f.Type)
	}
	s.Geometry = f.Geometry
	s.Properties = f.Properties
	if s.Properties == nil {
		s.Properties = map[string]any{}
	}
	return nil
}

// ParseGeoShape decodes a stored geometry and property bag. Both arrive as
// raw JSON columns from the relational store.
func ParseGeoShape(geometry, properties []byte) (GeoShape, error) {
	var shape GeoShape
	if err := json.Unmarshal(geometry, &shape.Geometry); err != nil {
		return GeoShape{}, err
	}
	shape.Properties = map[string]any{}
	if len(properties) > 0 && string(properties) != "null" {
		if err := json.Unmarshal(properties, &shape.Properties); err != nil {
			return GeoShape{}, fmt.Errorf("decoding properties: %w", err)
		}
	}
	return shape, nil
}
