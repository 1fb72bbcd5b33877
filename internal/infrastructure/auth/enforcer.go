package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Policy grants one role an action on a resource
type Policy struct {
	Role     string
	Resource string
	Action   string
}

// PaymentPolicies grants every payment role the batch settlement action
func PaymentPolicies(resource, action string) []Policy {
	policies := make([]Policy, 0, len(entity.PaymentRoles))
	for _, role := range entity.PaymentRoles {
		policies = append(policies, Policy{Role: role, Resource: resource, Action: action})
	}
	return policies
}

// Enforcer implements port.Authorizer with an in-memory casbin RBAC model
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewEnforcer builds the enforcer and loads policies
func NewEnforcer(policies []Policy, logger *zap.Logger) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p.Role, p.Resource, p.Action); err != nil {
			return nil, fmt.Errorf("failed to add policy for %s: %w", p.Role, err)
		}
	}

	return &Enforcer{
		enforcer: enforcer,
		logger:   logger,
	}, nil
}

// Authorize implements port.Authorizer
func (e *Enforcer) Authorize(role, resource, action string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(role, resource, action)
	if err != nil {
		e.logger.Error("Permission check failed",
			zap.String("role", role),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err))
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return allowed, nil
}

// Verify interface compliance
var _ port.Authorizer = (*Enforcer)(nil)
