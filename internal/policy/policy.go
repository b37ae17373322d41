// Package policy evaluates per-table, per-operation predicates over the caller
// and the row being read or written.
//
// SELECT policies are additive: any granting policy exposes the row. Write
// policies are conjunctive: at least one policy must exist for the operation
// and every one of them must hold. An operation with no policy is denied.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

type Table string

const (
	TableProfiles        Table = "profiles"
	TableSellers         Table = "sellers"
	TableProducts        Table = "products"
	TableOrders          Table = "orders"
	TableMessages        Table = "messages"
	TableCartItems       Table = "cart_items"
	TableWishlist        Table = "wishlist"
	TableProductLikes    Table = "product_likes"
	TableProductComments Table = "product_comments"
	TableAvatars         Table = "storage.avatars"
)

// Caller is the authenticated identity a decision is made for. The zero value is anonymous.
type Caller struct {
	ID   uuid.UUID
	Role enums.UserRole
}

func (c Caller) Authenticated() bool {
	return c.ID != uuid.Nil
}

func (c Caller) IsSeller() bool {
	return c.Authenticated() && c.Role == enums.UserRoleSeller
}

// Predicate is a boolean rule over (caller, row).
type Predicate func(caller Caller, row any) bool

// Using renders a SELECT policy as a SQL condition so listings only return
// rows the caller can see.
type Using func(caller Caller) (string, []any)

type Policy struct {
	Name      string
	Table     Table
	Operation Operation
	Check     Predicate
	Using     Using
}

// Observer receives every decision; metrics implement it.
type Observer interface {
	ObserveDecision(table, operation string, allowed bool)
}

type key struct {
	table Table
	op    Operation
}

type Set struct {
	policies map[key][]Policy
	observer Observer
	logg     *logger.Logger
}

type Option func(*Set)

func WithObserver(o Observer) Option {
	return func(s *Set) { s.observer = o }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Set) { s.logg = l }
}

// NewSet validates and indexes the given policies.
func NewSet(policies []Policy, opts ...Option) (*Set, error) {
	s := &Set{policies: map[key][]Policy{}}
	names := map[string]struct{}{}
	for _, p := range policies {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("policy on %s/%s has no name", p.Table, p.Operation)
		}
		if _, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("duplicate policy name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		if p.Check == nil {
			return nil, fmt.Errorf("policy %q has no predicate", p.Name)
		}
		switch p.Operation {
		case OpSelect, OpInsert, OpUpdate, OpDelete:
		default:
			return nil, fmt.Errorf("policy %q has unknown operation %q", p.Name, p.Operation)
		}
		k := key{table: p.Table, op: p.Operation}
		s.policies[k] = append(s.policies[k], p)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Decision is the outcome of evaluating one operation.
type Decision struct {
	Allowed bool
	// Policy names the granting SELECT policy, or the first failing write policy.
	Policy string
}

// Evaluate applies the additive/conjunctive rules without side effects.
func (s *Set) Evaluate(table Table, op Operation, caller Caller, row any) Decision {
	candidates := s.policies[key{table: table, op: op}]
	if len(candidates) == 0 {
		return Decision{}
	}
	if op == OpSelect {
		for _, p := range candidates {
			if p.Check(caller, row) {
				return Decision{Allowed: true, Policy: p.Name}
			}
		}
		return Decision{}
	}
	for _, p := range candidates {
		if !p.Check(caller, row) {
			return Decision{Policy: p.Name}
		}
	}
	return Decision{Allowed: true}
}

// Allowed reports whether caller may perform op on row.
func (s *Set) Allowed(table Table, op Operation, caller Caller, row any) bool {
	return s.Evaluate(table, op, caller, row).Allowed
}

// AuthorizeRead returns NOT_FOUND when the row is hidden from caller, so a
// denied read cannot be told apart from a missing row.
func (s *Set) AuthorizeRead(ctx context.Context, table Table, caller Caller, row any) error {
	d := s.decide(ctx, table, OpSelect, caller, row)
	if d.Allowed {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
}

// AuthorizeWrite checks insert/update/delete. For update and delete the row
// must also be visible, otherwise the result is NOT_FOUND.
func (s *Set) AuthorizeWrite(ctx context.Context, table Table, op Operation, caller Caller, row any) error {
	if op == OpSelect {
		return s.AuthorizeRead(ctx, table, caller, row)
	}
	if !caller.Authenticated() {
		s.observe(table, op, false)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if op == OpUpdate || op == OpDelete {
		if len(s.policies[key{table: table, op: OpSelect}]) > 0 && !s.Allowed(table, OpSelect, caller, row) {
			s.observe(table, op, false)
			return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
	}
	d := s.decide(ctx, table, op, caller, row)
	if d.Allowed {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
}

func (s *Set) decide(ctx context.Context, table Table, op Operation, caller Caller, row any) Decision {
	d := s.Evaluate(table, op, caller, row)
	s.observe(table, op, d.Allowed)
	if !d.Allowed && s.logg != nil {
		fields := map[string]any{"table": string(table), "operation": string(op), "caller_id": caller.ID.String()}
		if d.Policy != "" {
			fields["policy"] = d.Policy
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "policy denied operation")
	}
	return d
}

func (s *Set) observe(table Table, op Operation, allowed bool) {
	if s.observer != nil {
		s.observer.ObserveDecision(string(table), string(op), allowed)
	}
}

// Scope restricts a query on table to rows visible to caller: the OR of every
// SELECT policy's SQL form. Tables without SELECT policies yield no rows.
func (s *Set) Scope(table Table, caller Caller) func(*gorm.DB) *gorm.DB {
	var (
		parts []string
		args  []any
	)
	for _, p := range s.policies[key{table: table, op: OpSelect}] {
		if p.Using == nil {
			continue
		}
		sql, vars := p.Using(caller)
		parts = append(parts, "("+sql+")")
		args = append(args, vars...)
	}
	return func(db *gorm.DB) *gorm.DB {
		if len(parts) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
}

// Names lists every policy name, sorted.
func (s *Set) Names() []string {
	var out []string
	for _, ps := range s.policies {
		for _, p := range ps {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Policies returns the policies registered for table and op in evaluation order.
func (s *Set) Policies(table Table, op Operation) []Policy {
	ps := s.policies[key{table: table, op: op}]
	out := make([]Policy, len(ps))
	copy(out, ps)
	return out
}

// Row adapts a typed predicate. Values and pointers of T are accepted; any
// other row type fails the predicate.
func Row[T any](fn func(Caller, T) bool) Predicate {
	return func(caller Caller, row any) bool {
		switch v := row.(type) {
		case T:
			return fn(caller, v)
		case *T:
			if v == nil {
				return false
			}
			return fn(caller, *v)
		default:
			return false
		}
	}
}

// Public grants every caller, anonymous included.
func Public(Caller, any) bool { return true }

// Authenticated grants any identified caller.
func Authenticated(caller Caller, _ any) bool { return caller.Authenticated() }
