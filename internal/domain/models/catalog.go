package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Catalog kinds. Services are priced per unit (kg, load, hour); items per piece.
const (
	KindService = "service"
	KindItem    = "item"
)

// CatalogEntry is a priced entry in a workspace's service or item catalog.
// Services and items live in separate collections but share this shape.
type CatalogEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	PriceCents  int64              `bson:"price_cents" json:"price_cents"`
	Unit        string             `bson:"unit,omitempty" json:"unit,omitempty"` // services only
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
