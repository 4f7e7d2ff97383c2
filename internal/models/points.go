package models

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// PointMap maps a criterion id to a number of points. Missing entries count as zero.
// It always serializes with keys in ascending numeric order.
type PointMap map[uint]float64

func (p PointMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range p.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.FormatUint(uint64(id), 10)))
		buf.WriteByte(':')
		value, err := json.Marshal(p[id])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p PointMap) SortedKeys() []uint {
	return slices.Sorted(maps.Keys(p))
}

func (p PointMap) Get(criterionID uint) float64 {
	return p[criterionID]
}

func (p PointMap) Clone() PointMap {
	out := make(PointMap, len(p))
	maps.Copy(out, p)
	return out
}

// AttemptPoints holds points per question per criterion (Q) and per criterion (C).
type AttemptPoints struct {
	Q map[uint]PointMap `json:"q"`
	C PointMap          `json:"c"`
}

func NewAttemptPoints() AttemptPoints {
	return AttemptPoints{
		Q: make(map[uint]PointMap),
		C: make(PointMap),
	}
}

func (p AttemptPoints) Question(questionID uint) PointMap {
	return p.Q[questionID]
}

func (p PointMap) Equal(other PointMap) bool {
	return maps.Equal(p, other)
}

func (p AttemptPoints) Equal(other AttemptPoints) bool {
	return p.C.Equal(other.C) && maps.EqualFunc(p.Q, other.Q, PointMap.Equal)
}
