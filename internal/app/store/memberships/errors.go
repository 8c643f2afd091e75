package membershipstore

import "errors"

// Redemption outcomes.
var (
	ErrInvalidCode     = errors.New("that invitation code does not exist")
	ErrCodeNotActive   = errors.New("that invitation code is no longer active")
	ErrCodeExpired     = errors.New("that invitation code has expired")
	ErrCodeFull        = errors.New("that invitation code has no places left")
	ErrMalformedInvite = errors.New("that invitation is not linked to a workspace")
)

// Membership outcomes.
var (
	ErrPermissionDenied   = errors.New("only the workspace owner can do that")
	ErrCannotRemoveOwner  = errors.New("the workspace owner cannot be removed")
	ErrNotMember          = errors.New("you are not a member of this workspace")
	ErrOwnerCannotLeave   = errors.New("the owner cannot leave; delete the workspace instead")
	ErrAlreadyInWorkspace = errors.New("you already belong to a workspace")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrProfileNotFound    = errors.New("no profile for this user; sign in first")
	ErrInvalidInput       = errors.New("invalid input")
)
