package chart

import "time"

// Key identifies a chart object across all of its versions.
type Key struct {
	ID     string `json:"Id"`
	TypeID string `json:"TypeId"`
}

// String returns the rendered-graph key (Id+TypeId).
func (k Key) String() string {
	return k.ID + k.TypeID
}

type Direction string

const (
	DirectionTo   Direction = "TO"
	DirectionFrom Direction = "FROM"
	DirectionBoth Direction = "BOTH"
	DirectionNone Direction = "NONE"
)

type Coordinates struct {
	Lat float64 `json:"Lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"Lng" validate:"gte=-180,lte=180"`
}

type Property struct {
	TypeID string `json:"TypeId" validate:"required"`
	Value  string `json:"Value"`
}

// Object holds the attributes shared by entities and links. A value of
// Object is one version; GID is unique per version.
type Object struct {
	ID          string       `json:"Id" validate:"required"`
	TypeID      string       `json:"TypeId" validate:"required"`
	GID         int64        `json:"GID"`
	LabelShort  string       `json:"LabelShort,omitempty"`
	LabelLong   string       `json:"LabelLong,omitempty"`
	LabelChart  string       `json:"LabelChart,omitempty"`
	PosX        float64      `json:"PosX"`
	PosY        float64      `json:"PosY"`
	Size        *float64     `json:"Size,omitempty" validate:"omitempty,gt=0"`
	Color       string       `json:"Color,omitempty"`
	Mark        string       `json:"Mark,omitempty"`
	Coordinates *Coordinates `json:"Coordinates,omitempty"`
	Properties  []Property   `json:"Properties,omitempty" validate:"dive"`
	DateFrom    *time.Time   `json:"DateFrom,omitempty"`
	DateTo      *time.Time   `json:"DateTo,omitempty"`
}

// Key returns the version-independent identity.
func (o Object) Key() Key {
	return Key{ID: o.ID, TypeID: o.TypeID}
}

// Span returns the validity interval of this version.
func (o Object) Span() (from, to *time.Time) {
	return o.DateFrom, o.DateTo
}

// IsEvent reports whether the version has zero duration. Both bounds
// absent counts as an event that is always valid.
func (o Object) IsEvent() bool {
	if o.DateFrom == nil || o.DateTo == nil {
		return o.DateFrom == nil && o.DateTo == nil
	}
	return o.DateFrom.Equal(*o.DateTo)
}

// Label returns the label shown on the chart, falling back to the short label.
func (o Object) Label() string {
	if o.LabelChart != "" {
		return o.LabelChart
	}
	return o.LabelShort
}

type Entity struct {
	Object
}

type Link struct {
	Object
	FromEntityID     string    `json:"FromEntityId" validate:"required"`
	FromEntityTypeID string    `json:"FromEntityTypeId" validate:"required"`
	ToEntityID       string    `json:"ToEntityId" validate:"required"`
	ToEntityTypeID   string    `json:"ToEntityTypeId" validate:"required"`
	Direction        Direction `json:"Direction" validate:"omitempty,oneof=TO FROM BOTH NONE"`
}

// FromKey returns the key of the entity the link starts at.
func (l Link) FromKey() Key {
	return Key{ID: l.FromEntityID, TypeID: l.FromEntityTypeID}
}

// ToKey returns the key of the entity the link points to.
func (l Link) ToKey() Key {
	return Key{ID: l.ToEntityID, TypeID: l.ToEntityTypeID}
}

// SaveFile is the logical save payload exchanged with the save collaborator.
type SaveFile struct {
	Entities []Entity `json:"Entities"`
	Links    []Link   `json:"Links"`
	Shapes   []Shape  `json:"Shapes"`
	Context  string   `json:"Context"`
}

// Batch is the result of a search or an import.
type Batch struct {
	Entities     []Entity `json:"Entities"`
	Links        []Link   `json:"Links"`
	Events       []Entity `json:"Events"`
	ErrorMessage string   `json:"ErrorMessage,omitempty"`
}

// VersionID returns the internal version id.
func (o Object) VersionID() int64 {
	return o.GID
}

// WithSpan returns a copy of the entity version with a new validity interval.
func (e Entity) WithSpan(from, to *time.Time) Entity {
	e.DateFrom, e.DateTo = from, to
	return e
}

// WithSpan returns a copy of the link version with a new validity interval.
func (l Link) WithSpan(from, to *time.Time) Link {
	l.DateFrom, l.DateTo = from, to
	return l
}
