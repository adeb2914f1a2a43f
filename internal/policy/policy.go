package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"feedback-hub/internal/models"
)

//go:embed model.conf
var embeddedModel string

const (
	actPermission = "permission"
	actRoute      = "route"
)

// Policy answers permission and route questions for a role. It is read only
// once built and safe for concurrent use.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
	table    Table
}

func New(table Table) (*Policy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var rules [][]string
	for role, g := range table {
		for _, perm := range g.Permissions {
			rules = append(rules, []string{string(role), perm, actPermission})
		}
		for _, route := range g.Routes {
			rules = append(rules, []string{string(role), strings.TrimSuffix(route, "/") + "*", actRoute})
		}
	}
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("load policy rules: %w", err)
		}
	}
	return &Policy{enforcer: e, table: table}, nil
}

// MustDefault builds the policy from DefaultTable and panics on failure.
func MustDefault() *Policy {
	p, err := New(DefaultTable())
	if err != nil {
		panic(err)
	}
	return p
}

// PermissionGranted reports whether role holds perm. Unknown roles and
// enforcement errors deny.
func (p *Policy) PermissionGranted(role models.Role, perm string) bool {
	if !role.Valid() || perm == "" {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), perm, actPermission)
	return err == nil && ok
}

// RouteAllowed reports whether path starts with one of role's route prefixes.
func (p *Policy) RouteAllowed(role models.Role, path string) bool {
	if !role.Valid() || path == "" {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), path, actRoute)
	return err == nil && ok
}

func (p *Policy) Permissions(role models.Role) []string {
	g, ok := p.table[role]
	if !ok {
		return nil
	}
	out := append([]string(nil), g.Permissions...)
	sort.Strings(out)
	return out
}
