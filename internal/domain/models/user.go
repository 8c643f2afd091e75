// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the profile record kept for every identity that has signed in.
//
// NOTE:
//   - The document _id is the identity provider's uid, not an ObjectID.
//   - WorkspaceID is the only link from a user to a workspace. The workspace's
//     contributors map is the source of truth; a pointer that no longer matches
//     it is cleared on read (see userstore.Resolve).
type User struct {
	UID         string              `bson:"_id" json:"uid"`
	DisplayName *string             `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Email       *string             `bson:"email,omitempty" json:"email,omitempty"`
	PhotoURL    *string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	WorkspaceID *primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InWorkspace reports whether the profile points at a workspace.
func (u User) InWorkspace() bool {
	return u.WorkspaceID != nil && !u.WorkspaceID.IsZero()
}
