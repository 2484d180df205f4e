package auth

import (
	"log"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// RBAC model: the subject is the role carried in the token, objects are request
// paths (keyMatch2 understands /books/:id) and actions are HTTP methods.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies are installed when missing. Admins may use the whole API;
// students only reach the catalog, search, requesting and their own resources.
var DefaultPolicies = [][]string{
	{"admin", "/api/*", "^(GET|POST|PUT|DELETE)$"},

	{"student", "/api/auth/*", "^(GET|POST)$"},
	{"student", "/api/books", "^GET$"},
	{"student", "/api/books/available", "^GET$"},
	{"student", "/api/books/:id", "^GET$"},
	{"student", "/api/books/:id/requests", "^POST$"},
	{"student", "/api/categories", "^GET$"},
	{"student", "/api/categories/:id/books", "^GET$"},
	{"student", "/api/search/books", "^GET$"},
	{"student", "/api/me/*", "^(GET|PUT)$"},
}

// InitCasbin initializes the enforcer with policies persisted through the GORM adapter
func InitCasbin(db *gorm.DB) (*casbin.Enforcer, error) {
	// creates the casbin_rule table
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	if err := SeedPolicies(enforcer); err != nil {
		return nil, err
	}

	log.Println("Casbin initialized successfully")
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence, seeded with DefaultPolicies.
func NewMemoryEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := SeedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// SeedPolicies adds any default policy that is not present yet. Existing
// policies, including ones added by operators, are left alone.
func SeedPolicies(enforcer *casbin.Enforcer) error {
	added := 0
	for _, rule := range DefaultPolicies {
		ok, err := enforcer.AddPolicy(rule[0], rule[1], rule[2])
		if err != nil {
			return err
		}
		if ok {
			added++
		}
	}
	if added > 0 {
		log.Printf("Casbin: Installed %d default policies", added)
	}
	return nil
}
