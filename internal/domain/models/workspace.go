package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contributor roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Workspace is the tenant boundary for a wash business. Customers, catalog
// entries and orders all carry the workspace_id of the workspace they belong to.
//
// Exactly one entry in Contributors has role "owner", and its key is OwnerUID.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"workspace_name" json:"workspace_name"`
	NameCI string `bson:"workspace_name_ci" json:"-"` // case-folded for sorting

	// OwnerUID never changes after creation.
	OwnerUID string `bson:"owner_uid" json:"owner_uid"`

	// Contributors maps uid -> role.
	Contributors map[string]string `bson:"contributors" json:"contributors"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RoleOf returns the contributor role for uid, or "" if uid is not a contributor.
func (w Workspace) RoleOf(uid string) string {
	return w.Contributors[uid]
}

// IsOwner reports whether uid owns the workspace.
func (w Workspace) IsOwner(uid string) bool {
	return uid != "" && uid == w.OwnerUID
}

// HasContributor reports whether uid appears in the contributors map.
func (w Workspace) HasContributor(uid string) bool {
	_, ok := w.Contributors[uid]
	return ok
}
