// Package rbac loads casbin policies from Postgres and answers role checks.
//
// Policies are seeded by migrations and treated as read-only at runtime.
package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

const defaultTableName = "access_policies"

var (
	_ persist.Adapter        = (*Adapter)(nil)
	_ persist.ContextAdapter = (*Adapter)(nil)

	// ErrReadOnly is returned by every write operation of the adapter.
	ErrReadOnly = errors.New("rbac: policies are managed by migrations")
)

// Querier is the subset of pgx used by the adapter.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter is a read-only casbin adapter over a ptype,v0..v5 table.
type Adapter struct {
	db        Querier
	tableName string
}

// Option customizes the Adapter.
type Option func(*Adapter)

// WithTableName overrides the policy table.
func WithTableName(name string) Option {
	return func(a *Adapter) {
		a.tableName = lo.SnakeCase(name)
	}
}

// NewAdapter returns an Adapter reading from db.
func NewAdapter(db Querier, opts ...Option) *Adapter {
	a := &Adapter{db: db, tableName: defaultTableName}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadPolicyCtx loads every policy line into m.
func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	lines, err := a.selectAll(ctx)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return err
		}
	}

	return nil
}

// LoadPolicy implements persist.Adapter.
func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

func (a *Adapter) selectAll(ctx context.Context) ([][]string, error) {
	query := fmt.Sprintf("select ptype, v0, v1, v2, v3, v4, v5 from %s order by id", a.tableName)

	rows, err := a.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rbac: select policies: %w", err)
	}
	defer rows.Close()

	var lines [][]string
	for rows.Next() {
		var cols [7]sql.NullString
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6]); err != nil {
			return nil, fmt.Errorf("rbac: scan policy: %w", err)
		}

		line := lo.Map(cols[:], func(c sql.NullString, _ int) string {
			return strings.TrimSpace(c.String)
		})
		lines = append(lines, trimTrailingEmpty(line))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate policies: %w", err)
	}

	return lo.UniqBy(lines, func(line []string) string {
		return strings.Join(line, ",")
	}), nil
}

func trimTrailingEmpty(line []string) []string {
	end := len(line)
	for end > 0 && line[end-1] == "" {
		end--
	}
	return line[:end]
}

// SavePolicyCtx is not supported.
func (*Adapter) SavePolicyCtx(context.Context, model.Model) error { return ErrReadOnly }

// AddPolicyCtx is not supported.
func (*Adapter) AddPolicyCtx(context.Context, string, string, []string) error { return ErrReadOnly }

// RemovePolicyCtx is not supported.
func (*Adapter) RemovePolicyCtx(context.Context, string, string, []string) error { return ErrReadOnly }

// RemoveFilteredPolicyCtx is not supported.
func (*Adapter) RemoveFilteredPolicyCtx(context.Context, string, string, int, ...string) error {
	return ErrReadOnly
}

// SavePolicy is not supported.
func (*Adapter) SavePolicy(model.Model) error { return ErrReadOnly }

// AddPolicy is not supported.
func (*Adapter) AddPolicy(string, string, []string) error { return ErrReadOnly }

// RemovePolicy is not supported.
func (*Adapter) RemovePolicy(string, string, []string) error { return ErrReadOnly }

// RemoveFilteredPolicy is not supported.
func (*Adapter) RemoveFilteredPolicy(string, string, int, ...string) error { return ErrReadOnly }
