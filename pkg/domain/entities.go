// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by sowline.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySow identifies a breeding female record.
	EntitySow EntityType = "sow"
	// EntityPiglet identifies an offspring record.
	EntityPiglet EntityType = "piglet"
	// EntityBreedingRecord identifies a service (mating) record.
	EntityBreedingRecord EntityType = "breeding_record"
	// EntityFarrowingRecord identifies a litter record.
	EntityFarrowingRecord EntityType = "farrowing_record"
	// EntityDeathRecord identifies a death event record.
	EntityDeathRecord EntityType = "death_record"
	// EntityCullRecord identifies a cull event record.
	EntityCullRecord EntityType = "cull_record"
	// EntityParityScore identifies a derived per-litter score row.
	EntityParityScore EntityType = "parity_score"
	// EntitySowScore identifies a derived per-sow score row.
	EntitySowScore EntityType = "sow_score"
)

// SowStatus represents the lifecycle state of a breeding female.
type SowStatus string

// Canonical sow lifecycle states. A sow is created active and only ever
// transitions to one of the terminal states.
const (
	StatusActive SowStatus = "active"
	StatusDead   SowStatus = "dead"
	StatusCulled SowStatus = "culled"
)

// Terminal reports whether the status permits no further transition.
func (s SowStatus) Terminal() bool {
	return s == StatusDead || s == StatusCulled
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sow represents an individual breeding female tracked by the system. The ID
// is the herd's natural individual number. DamID is a self-reference forming
// the maternal descent forest; SireID is an opaque identifier and never
// resolves to a managed entity.
type Sow struct {
	Base
	SourcePigletNo *string    `json:"source_piglet_no,omitempty"`
	DamID          *string    `json:"dam_id,omitempty"`
	SireID         *string    `json:"sire_id,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Grade          *string    `json:"grade,omitempty"`
	TeatScore      *int       `json:"teat_score,omitempty"`
	Remarks        *string    `json:"remarks,omitempty"`
	Status         SowStatus  `json:"status"`
}

// Piglet represents an offspring record. Piglets are the source of the
// offspring-quality ratios and, when graded W, of gilt promotion into the sow
// roster.
type Piglet struct {
	Base
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Grade        *string    `json:"grade,omitempty"`
	TeatScore    *int       `json:"teat_score,omitempty"`
	Remarks      *string    `json:"remarks,omitempty"`
	ShipmentDest *string    `json:"shipment_dest,omitempty"`
	PSShipment   *string    `json:"ps_shipment,omitempty"`
	ShipmentDate *time.Time `json:"shipment_date,omitempty"`
	ShipmentAge  *int       `json:"shipment_age,omitempty"`
	DamID        *string    `json:"dam_id,omitempty"`
	SireID       *string    `json:"sire_id,omitempty"`
}

// BreedingRecord captures one service (mating) event for a sow at a given
// parity.
type BreedingRecord struct {
	Base
	SowID          string     `json:"sow_id"`
	Parity         int        `json:"parity"`
	BreedingDate   *time.Time `json:"breeding_date,omitempty"`
	BreedingType   *string    `json:"breeding_type,omitempty"`
	SireFirst      *string    `json:"sire_first,omitempty"`
	SireSecond     *string    `json:"sire_second,omitempty"`
	ReturnToEstrus *string    `json:"return_to_estrus,omitempty"`
	AgeDays        *int       `json:"age_days,omitempty"`
}

// FarrowingRecord captures one litter for a sow. Parity is unique per sow and
// strictly positive. Count fields are pointers because upstream records may
// omit them; a missing count stays missing through scoring and is never
// coerced to zero.
type FarrowingRecord struct {
	Base
	SowID             string     `json:"sow_id"`
	Parity            int        `json:"parity"`
	FarrowingDate     *time.Time `json:"farrowing_date,omitempty"`
	TotalBorn         *int       `json:"total_born,omitempty"`
	BornAlive         *int       `json:"born_alive,omitempty"`
	Stillborn         *int       `json:"stillborn,omitempty"`
	Mummified         *int       `json:"mummified,omitempty"`
	Foster            *int       `json:"foster,omitempty"`
	WeaningDate       *time.Time `json:"weaning_date,omitempty"`
	Weaned            *int       `json:"weaned,omitempty"`
	Deaths            *int       `json:"deaths,omitempty"`
	NursingDays       *int       `json:"nursing_days,omitempty"`
	FarrowingInterval *int       `json:"farrowing_interval,omitempty"`
}

// DeathRecord captures a sow death event. Ingesting one transitions the sow
// to StatusDead.
type DeathRecord struct {
	Base
	SowID     string     `json:"sow_id"`
	EventDate *time.Time `json:"event_date,omitempty"`
	Cause     *string    `json:"cause,omitempty"`
	AgeDays   *int       `json:"age_days,omitempty"`
	Parity    *int       `json:"parity,omitempty"`
}

// CullRecord captures a sow cull event. Ingesting one transitions the sow to
// StatusCulled unless a death was already recorded.
type CullRecord struct {
	Base
	SowID             string     `json:"sow_id"`
	EventDate         *time.Time `json:"event_date,omitempty"`
	Cause             *string    `json:"cause,omitempty"`
	NonProductiveDays *int       `json:"non_productive_days,omitempty"`
	Parity            *int       `json:"parity,omitempty"`
}
