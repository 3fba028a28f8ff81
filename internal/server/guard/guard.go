// Package guard loads route-scoped resources and resolves the caller's
// effective role before a handler runs.
package guard

import (
	"context"
	"fmt"

	"commie/backend/internal/apperr"
	committeedomain "commie/backend/internal/committee/domain"
	committeerepo "commie/backend/internal/committee/repository"
	motiondomain "commie/backend/internal/motion/domain"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/server/middleware"
)

// Committee loads the committee and resolves the caller's role from the
// request context. Anonymous callers resolve to RoleNone.
func Committee(ctx context.Context, committees committeerepo.Repository, committeeID string) (*committeedomain.Committee, rbac.Role, error) {
	c, err := committees.GetByID(ctx, committeeID)
	if err != nil {
		return nil, rbac.RoleNone, err
	}
	if c == nil {
		return nil, rbac.RoleNone, fmt.Errorf("%w: committee", apperr.ErrNotFound)
	}
	role, err := rbac.Resolve(ctx, middleware.UserFrom(ctx), c, committees)
	if err != nil {
		return nil, rbac.RoleNone, err
	}
	return c, role, nil
}

// ReadableCommittee is Committee plus the read check: private committees are
// hidden (404, not 403) from callers without at least guest access, so their
// existence does not leak.
func ReadableCommittee(ctx context.Context, committees committeerepo.Repository, committeeID string) (*committeedomain.Committee, rbac.Role, error) {
	c, role, err := Committee(ctx, committees, committeeID)
	if err != nil {
		return nil, rbac.RoleNone, err
	}
	if !rbac.CanRead(role, c) {
		return nil, rbac.RoleNone, fmt.Errorf("%w: committee", apperr.ErrNotFound)
	}
	return c, role, nil
}

// MotionGetter loads a motion by id.
type MotionGetter interface {
	GetByID(ctx context.Context, id string) (*motiondomain.Motion, error)
}

// Motion loads a motion and checks it belongs to the committee.
func Motion(ctx context.Context, motions MotionGetter, committeeID, motionID string) (*motiondomain.Motion, error) {
	m, err := motions.GetByID(ctx, motionID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.CommitteeID != committeeID {
		return nil, fmt.Errorf("%w: motion", apperr.ErrNotFound)
	}
	return m, nil
}
