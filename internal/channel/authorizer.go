// Package channel decides which realtime channels a user may join.
package channel

import (
	"context"
	"errors"
	"strings"

	"chat-platform/backend/internal/membership/repository"
)

// ErrUnauthorized is returned when the caller may not join the channel.
// Unknown channel shapes and malformed names get the same answer as a true
// denial, so callers cannot probe the namespace.
var ErrUnauthorized = errors.New("not authorized for this channel")

const (
	userPrefix  = "user."
	groupPrefix = "group."
)

// MembershipChecker is the membership lookup the authorizer needs.
type MembershipChecker interface {
	Exists(ctx context.Context, groupID, userID string) (bool, error)
}

// Authorizer grants access to exactly two channel shapes: a user's private
// channel ("user.{id}", owner only) and a group channel ("group.{gid}",
// members only).
type Authorizer struct {
	memberships MembershipChecker
}

var _ MembershipChecker = (repository.Repository)(nil)

// NewAuthorizer returns an Authorizer backed by the given membership lookup.
func NewAuthorizer(memberships MembershipChecker) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// Authorize returns nil if userID may join channel, ErrUnauthorized otherwise.
// Only storage failures produce a different error.
func (a *Authorizer) Authorize(ctx context.Context, userID, channel string) error {
	switch {
	case strings.HasPrefix(channel, userPrefix):
		owner := channel[len(userPrefix):]
		if owner == "" || owner != userID {
			return ErrUnauthorized
		}
		return nil

	case strings.HasPrefix(channel, groupPrefix):
		groupID := channel[len(groupPrefix):]
		if groupID == "" {
			return ErrUnauthorized
		}
		member, err := a.memberships.Exists(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrUnauthorized
		}
		return nil

	default:
		return ErrUnauthorized
	}
}
