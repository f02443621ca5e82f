package members

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/platform/db"
)

type txPool interface {
	db.Beginner
	periods.Querier
}

// Repository persists members, groups and their contributions.
type Repository struct {
	pool txPool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockMember(ctx context.Context, id int64) (Member, error)
	SetMemberStatus(ctx context.Context, id int64, status Status, at time.Time) error
	LockGroup(ctx context.Context, id int64) (Group, error)
	SetGroupStatus(ctx context.Context, id int64, status Status, at time.Time) (int64, error)
	FeesTotal(ctx context.Context, memberID int64) (decimal.Decimal, error)
	InsertRegistrationFee(ctx context.Context, fee RegistrationFee) (RegistrationFee, error)
	InsertDeposit(ctx context.Context, dep Deposit) (Deposit, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction. Writes
// lock the member or group row first, so totals read afterwards include the
// previous holder's rows.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Periods returns the period calendar outside any transaction.
func (r *Repository) Periods() periods.Repository {
	return periods.NewRepository(r.pool)
}

const memberColumns = `id, group_id, first_name, last_name, national_id, COALESCE(email, ''), COALESCE(phone, ''), status, created_at, last_updated`
const groupColumns = `id, name, COALESCE(location, ''), status, created_at`

func (r *Repository) CreateGroup(ctx context.Context, g Group) (Group, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (name, location, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		g.Name, g.Location, string(g.Status), g.CreatedAt,
	).Scan(&g.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Group{}, ErrDuplicateName
		}
		return Group{}, fmt.Errorf("members: insert group: %w", err)
	}
	return g, nil
}

func (r *Repository) GetGroup(ctx context.Context, id int64) (Group, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, fmt.Errorf("members: get group %d: %w", id, err)
	}
	return g, nil
}

func (r *Repository) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("members: list groups: %w", err)
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) CreateMember(ctx context.Context, m Member) (Member, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (group_id, first_name, last_name, national_id, email, phone, status, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $8) RETURNING id`,
		m.GroupID, m.FirstName, m.LastName, m.NationalID, m.Email, m.Phone, string(m.Status), m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Member{}, ErrDuplicateMember
		case db.IsForeignKeyViolation(err):
			return Member{}, ErrGroupNotFound
		}
		return Member{}, fmt.Errorf("members: insert member: %w", err)
	}
	m.LastUpdated = m.CreatedAt
	return m, nil
}

func (r *Repository) GetMember(ctx context.Context, id int64) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Member{}, ledger.ErrNotFound
		}
		return Member{}, fmt.Errorf("members: get member %d: %w", id, err)
	}
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context, filter ListFilter) ([]Member, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.GroupID > 0 {
		args = append(args, filter.GroupID)
		where += ` AND group_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (first_name ILIKE $` + n + ` OR last_name ILIKE $` + n + ` OR national_id ILIKE $` + n + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("members: count members: %w", err)
	}

	query := `SELECT ` + memberColumns + ` FROM members` + where + ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("members: list members: %w", err)
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *Repository) ListDeposits(ctx context.Context, memberID int64) ([]Deposit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.member_id, d.period_id, p.label, d.amount, d.created_at
		 FROM deposits d JOIN periods p ON p.id = d.period_id
		 WHERE d.member_id = $1 ORDER BY d.created_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("members: list deposits: %w", err)
	}
	defer rows.Close()
	var out []Deposit
	for rows.Next() {
		var d Deposit
		if err := rows.Scan(&d.ID, &d.MemberID, &d.PeriodID, &d.PeriodLabel, &d.Amount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) ListRegistrationFees(ctx context.Context, memberID int64) ([]RegistrationFee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, member_id, amount, created_at FROM registration_fees WHERE member_id = $1 ORDER BY id DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("members: list registration fees: %w", err)
	}
	defer rows.Close()
	var out []RegistrationFee
	for rows.Next() {
		var f RegistrationFee
		if err := rows.Scan(&f.ID, &f.MemberID, &f.Amount, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) MemberTotals(ctx context.Context, memberID int64) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE member_id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM registration_fees WHERE member_id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM deposit_overdue_charges WHERE member_id = $1),
			(SELECT COALESCE(SUM(p.amount), 0) FROM deposit_overdue_payments p
				JOIN deposit_overdue_charges c ON c.id = p.charge_id WHERE c.member_id = $1),
			(SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status = 'pending')`,
		memberID,
	).Scan(&t.Deposits, &t.RegistrationFees, &t.OverdueCharged, &t.OverduePaid, &t.PendingLoans)
	if err != nil {
		return Totals{}, fmt.Errorf("members: totals %d: %w", memberID, err)
	}
	return t, nil
}

func (r *Repository) CreateEmployer(ctx context.Context, e Employer) (Employer, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employers (name, address, created_at) VALUES ($1, $2, $3) RETURNING id`,
		e.Name, e.Address, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Employer{}, ErrDuplicateName
		}
		return Employer{}, fmt.Errorf("members: insert employer: %w", err)
	}
	return e, nil
}

func (r *Repository) ListEmployers(ctx context.Context) ([]Employer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(address, ''), created_at FROM employers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("members: list employers: %w", err)
	}
	defer rows.Close()
	var out []Employer
	for rows.Next() {
		var e Employer
		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CreateOccupation(ctx context.Context, o Occupation) (Occupation, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO occupations (description, created_at) VALUES ($1, $2) RETURNING id`,
		o.Description, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Occupation{}, ErrDuplicateName
		}
		return Occupation{}, fmt.Errorf("members: insert occupation: %w", err)
	}
	return o, nil
}

func (r *Repository) ListOccupations(ctx context.Context) ([]Occupation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, description, created_at FROM occupations ORDER BY description`)
	if err != nil {
		return nil, fmt.Errorf("members: list occupations: %w", err)
	}
	defer rows.Close()
	var out []Occupation
	for rows.Next() {
		var o Occupation
		if err := rows.Scan(&o.ID, &o.Description, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateEmployment closes any active employment of the member and records the new one.
func (r *Repository) CreateEmployment(ctx context.Context, e Employment) (Employment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE employments SET active = FALSE WHERE member_id = $1 AND active`, e.MemberID); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO employments (member_id, employer_id, occupation_id, active, created_at) VALUES ($1, $2, $3, TRUE, $4) RETURNING id`,
			e.MemberID, e.EmployerID, e.OccupationID, e.CreatedAt,
		).Scan(&e.ID)
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Employment{}, ErrEmploymentTarget
		}
		return Employment{}, fmt.Errorf("members: insert employment: %w", err)
	}
	e.Active = true
	return e, nil
}

func (r *Repository) ListEmployments(ctx context.Context, memberID int64) ([]Employment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, member_id, employer_id, occupation_id, active, created_at FROM employments WHERE member_id = $1 ORDER BY id DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("members: list employments: %w", err)
	}
	defer rows.Close()
	var out []Employment
	for rows.Next() {
		var e Employment
		if err := rows.Scan(&e.ID, &e.MemberID, &e.EmployerID, &e.OccupationID, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *txRepo) LockMember(ctx context.Context, id int64) (Member, error) {
	m, err := scanMember(t.tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Member{}, ledger.ErrNotFound
		}
		return Member{}, fmt.Errorf("members: lock member %d: %w", id, err)
	}
	return m, nil
}

func (t *txRepo) SetMemberStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE members SET status = $1, last_updated = $2 WHERE id = $3`, string(status), at, id)
	return err
}

func (t *txRepo) LockGroup(ctx context.Context, id int64) (Group, error) {
	g, err := scanGroup(t.tx.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, fmt.Errorf("members: lock group %d: %w", id, err)
	}
	return g, nil
}

func (t *txRepo) SetGroupStatus(ctx context.Context, id int64, status Status, at time.Time) (int64, error) {
	if _, err := t.tx.Exec(ctx, `UPDATE groups SET status = $1 WHERE id = $2`, string(status), id); err != nil {
		return 0, err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE members SET status = $1, last_updated = $2 WHERE group_id = $3`, string(status), at, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) FeesTotal(ctx context.Context, memberID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM registration_fees WHERE member_id = $1`, memberID).Scan(&total)
	return total, err
}

func (t *txRepo) InsertRegistrationFee(ctx context.Context, fee RegistrationFee) (RegistrationFee, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO registration_fees (member_id, amount, created_at) VALUES ($1, $2, $3) RETURNING id`,
		fee.MemberID, fee.Amount, fee.CreatedAt,
	).Scan(&fee.ID)
	return fee, err
}

func (t *txRepo) InsertDeposit(ctx context.Context, dep Deposit) (Deposit, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO deposits (member_id, period_id, amount, created_at, last_updated) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		dep.MemberID, dep.PeriodID, dep.Amount, dep.CreatedAt,
	).Scan(&dep.ID)
	return dep, err
}


func scanGroup(row pgx.Row) (Group, error) {
	var (
		g      Group
		status string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Location, &status, &g.CreatedAt); err != nil {
		return Group{}, err
	}
	g.Status = Status(status)
	return g, nil
}

func scanMember(row pgx.Row) (Member, error) {
	var (
		m      Member
		status string
	)
	if err := row.Scan(&m.ID, &m.GroupID, &m.FirstName, &m.LastName, &m.NationalID, &m.Email, &m.Phone, &status, &m.CreatedAt, &m.LastUpdated); err != nil {
		return Member{}, err
	}
	m.Status = Status(status)
	return m, nil
}
