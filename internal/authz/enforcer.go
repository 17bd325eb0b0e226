// Package authz decides which roles may subscribe to which channels and
// act on which vessels, using a Casbin RBAC policy.
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ErrForbidden is returned when a role may not perform an action.
var ErrForbidden = errors.New("forbidden")

const (
	ActSubscribe = "subscribe"
	ActRead      = "read"
	ActRefresh   = "refresh"
)

type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the built-in policy, or the CSV policy at policyPath
// when one is given.
func NewEnforcer(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if policyPath != "" {
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(e, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("authz: create enforcer: %w", err)
	}
	return &Enforcer{enforcer: e}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform act on obj.
func (e *Enforcer) Enforce(role vessel.Role, obj, act string) (bool, error) {
	ok, err := e.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		return false, fmt.Errorf("authz: enforce: %w", err)
	}
	return ok, nil
}

// CanSubscribe returns ErrForbidden when role may not join ch. Enforcement
// errors deny.
func (e *Enforcer) CanSubscribe(role vessel.Role, ch subscription.Channel) error {
	return e.require(role, ChannelObject(ch), ActSubscribe)
}

// CanRefresh returns ErrForbidden when role may not trigger an AIS refresh
// of a vessel.
func (e *Enforcer) CanRefresh(role vessel.Role, id int64) error {
	return e.require(role, VesselObject(id), ActRefresh)
}

func (e *Enforcer) require(role vessel.Role, obj, act string) error {
	ok, err := e.Enforce(role, obj, act)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, role, act, obj)
	}
	return nil
}

func ChannelObject(ch subscription.Channel) string { return "channel:" + string(ch) }

func VesselObject(id int64) string { return fmt.Sprintf("vessel:%d", id) }
