package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Status only moves forward: active -> used | expired.
const (
	InviteActive  = "active"
	InviteUsed    = "used"
	InviteExpired = "expired"
)

// Invitation is a join-by-code token for a workspace. The code is the document _id.
type Invitation struct {
	Code            string              `bson:"_id" json:"code"`
	WorkspaceID     *primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	MaxContributors int                 `bson:"max_contributors" json:"max_contributors"`
	ExpiresAt       *time.Time          `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Status          string              `bson:"status" json:"status"`
	UsersWhoJoined  []string            `bson:"users_who_joined" json:"users_who_joined"`
	CreatedBy       string              `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ExpiredAt reports whether the invitation has an expiry at or before now.
func (i Invitation) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// Remaining returns how many more users may redeem the code.
func (i Invitation) Remaining() int {
	n := i.MaxContributors - len(i.UsersWhoJoined)
	if n < 0 {
		return 0
	}
	return n
}
