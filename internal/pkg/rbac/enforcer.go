package rbac

import (
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

// Model is the role based model used by the service. Subjects are portal roles;
// "*" in a policy object or action matches anything.
const Model = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Authorizer answers whether a role may perform an action on an object.
type Authorizer interface {
	Enforce(rvals ...any) (bool, error)
}

// NewEnforcer builds a casbin enforcer with Model and loads policies through adapter.
func NewEnforcer(adapter *Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(Model)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	e.EnableAutoSave(false)

	return e, nil
}
