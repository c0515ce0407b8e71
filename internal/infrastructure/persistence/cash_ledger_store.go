package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/restodash/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrValidatedCreateUnavailable is returned by CreateRegisterValidated when the
// database has no open_cash_register function (sqlite).
var ErrValidatedCreateUnavailable = errors.New("validated register create is not available on this database")

// summaryColumns is the reduced column set of the emergency register query
var summaryColumns = []string{"id", "name", "status", "current_amount", "restaurant_id", "opened_at"}

// GormLedgerStore implements cashregister.LedgerStore using GORM
type GormLedgerStore struct {
	db              *gorm.DB
	validatedCreate bool
	// exactNumeric is false on SQLite, where decimal columns hold REAL values
	// and SQL arithmetic on them is binary floating point
	exactNumeric bool
}

// NewGormLedgerStore creates a new GormLedgerStore. The validated create path
// is enabled on postgres, where the migrations install open_cash_register.
func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	postgres := db.Dialector.Name() == "postgres"
	return &GormLedgerStore{
		db:              db,
		validatedCreate: postgres,
		exactNumeric:    postgres,
	}
}

// ListRegisters returns full register rows, newest first
func (s *GormLedgerStore) ListRegisters(ctx context.Context, filter cashregister.RegisterFilter) ([]*cashregister.Register, error) {
	var rows []models.CashRegisterModel
	if err := s.filtered(ctx, filter).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list registers: %w", err)
	}
	return registersToDomain(rows)
}

// ListRegisterSummaries returns the reduced column set under the same filter
func (s *GormLedgerStore) ListRegisterSummaries(ctx context.Context, filter cashregister.RegisterFilter) ([]*cashregister.Register, error) {
	var rows []models.CashRegisterModel
	if err := s.filtered(ctx, filter).Select(summaryColumns).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list register summaries: %w", err)
	}
	return registersToDomain(rows)
}

func (s *GormLedgerStore) filtered(ctx context.Context, filter cashregister.RegisterFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.CashRegisterModel{})
	if filter.RestaurantID != nil {
		query = query.Where("restaurant_id = ?", *filter.RestaurantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return query.Order("opened_at DESC")
}

func registersToDomain(rows []models.CashRegisterModel) ([]*cashregister.Register, error) {
	registers := make([]*cashregister.Register, 0, len(rows))
	for i := range rows {
		r, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		registers = append(registers, r)
	}
	return registers, nil
}

// FindRegister finds a register by its ID
func (s *GormLedgerStore) FindRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	var row models.CashRegisterModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find register %s: %w", id, err)
	}
	return row.ToDomain()
}

// CreateRegisterValidated calls open_cash_register, which checks the
// restaurant and the amounts server-side and inserts the row in one statement.
func (s *GormLedgerStore) CreateRegisterValidated(ctx context.Context, register *cashregister.Register) (*cashregister.Register, error) {
	if !s.validatedCreate {
		return nil, ErrValidatedCreateUnavailable
	}

	var opening any
	if record := models.OpeningDetailsRecordFromDomain(register.Opening); record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode opening details: %w", err)
		}
		opening = string(raw)
	}

	var row models.CashRegisterModel
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM open_cash_register(?, ?, ?, ?, ?, ?)",
			register.ID,
			register.Name,
			register.InitialAmount,
			register.RestaurantID,
			register.OpenedAt,
			opening,
		).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("open_cash_register: %w", err)
	}
	if row.ID == uuid.Nil {
		return nil, errors.New("open_cash_register returned no row")
	}
	return row.ToDomain()
}

// InsertRegister writes the register row as given
func (s *GormLedgerStore) InsertRegister(ctx context.Context, register *cashregister.Register) error {
	row := models.CashRegisterModelFromDomain(register)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return cashregister.ErrDuplicateRegister
		}
		return fmt.Errorf("insert register %s: %w", register.ID, err)
	}
	return nil
}

// CloseRegister closes an OPEN register. The status guard makes concurrent
// closes race safely: only one of them affects the row.
func (s *GormLedgerStore) CloseRegister(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.CashRegisterModel{}).
		Where("id = ? AND status = ?", id, cashregister.RegisterStatusOpen.String()).
		Updates(map[string]any{
			"status":     cashregister.RegisterStatusClosed.String(),
			"closed_at":  closedAt,
			"updated_at": closedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("close register %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return s.missingOrClosed(ctx, id, cashregister.ErrAlreadyClosed)
	}
	return nil
}

// InsertMovement appends a movement row
func (s *GormLedgerStore) InsertMovement(ctx context.Context, movement *cashregister.Movement) error {
	row := models.CashMovementModelFromDomain(movement)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert movement %s: %w", movement.ID, err)
	}
	return nil
}

// ApplyBalanceDelta increments current_amount in the database rather than
// writing a value computed from an earlier read, then reads the result back.
// Without exact numeric columns the sum is taken in Go inside a transaction.
func (s *GormLedgerStore) ApplyBalanceDelta(ctx context.Context, registerID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if !s.exactNumeric {
		return s.addToBalance(ctx, registerID, delta, at)
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&models.CashRegisterModel{}).
		Where("id = ? AND status = ?", registerID, cashregister.RegisterStatusOpen.String()).
		Updates(map[string]any{
			"current_amount": gorm.Expr("current_amount + ?", delta),
			"updated_at":     at,
		})
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("apply balance delta to %s: %w", registerID, result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, s.missingOrClosed(ctx, registerID, cashregister.ErrRegisterClosed)
	}

	var row models.CashRegisterModel
	if err := db.Select("current_amount").Where("id = ?", registerID).Take(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("read balance of %s: %w", registerID, err)
	}
	return row.CurrentAmount, nil
}

// addToBalance reads, adds and writes the balance in one transaction.
// SQLite serializes writers, so no other delta lands in between.
func (s *GormLedgerStore) addToBalance(ctx context.Context, registerID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CashRegisterModel
		if err := tx.Select("current_amount", "status").Where("id = ?", registerID).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("read balance of %s: %w", registerID, err)
		}
		if row.Status != cashregister.RegisterStatusOpen.String() {
			return cashregister.ErrRegisterClosed
		}

		balance = row.CurrentAmount.Add(delta).Round(cashregister.MoneyScale)
		if err := tx.Model(&models.CashRegisterModel{}).
			Where("id = ?", registerID).
			Updates(map[string]any{
				"current_amount": balance,
				"updated_at":     at,
			}).Error; err != nil {
			return fmt.Errorf("apply balance delta to %s: %w", registerID, err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// missingOrClosed explains a guarded update that matched no row
func (s *GormLedgerStore) missingOrClosed(ctx context.Context, id uuid.UUID, closedErr error) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CashRegisterModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check register %s: %w", id, err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return closedErr
}

type movementSum struct {
	Type  string
	Total decimal.Decimal
	Count int64
}

// SumMovements totals the movements of a register per direction
func (s *GormLedgerStore) SumMovements(ctx context.Context, registerID uuid.UUID) (cashregister.MovementTotals, error) {
	sums, err := s.movementSums(ctx, registerID)
	if err != nil {
		return cashregister.MovementTotals{}, fmt.Errorf("sum movements of %s: %w", registerID, err)
	}

	totals := cashregister.MovementTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, sum := range sums {
		switch cashregister.MovementType(sum.Type) {
		case cashregister.MovementTypeIncome:
			totals.Income = totals.Income.Add(sum.Total)
		case cashregister.MovementTypeExpense:
			totals.Expense = totals.Expense.Add(sum.Total)
		default:
			return cashregister.MovementTotals{}, fmt.Errorf("movement type %q: %w", sum.Type, cashregister.ErrMalformedRow)
		}
		totals.Count += sum.Count
	}
	return totals, nil
}

// movementSums groups the movement amounts by type. SQL SUM is used only on
// exact numeric columns; otherwise the amounts are added in Go.
func (s *GormLedgerStore) movementSums(ctx context.Context, registerID uuid.UUID) ([]movementSum, error) {
	query := s.db.WithContext(ctx).
		Model(&models.CashMovementModel{}).
		Where("cash_register_id = ?", registerID)

	if s.exactNumeric {
		var sums []movementSum
		err := query.
			Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
			Group("type").
			Scan(&sums).Error
		return sums, err
	}

	var rows []models.CashMovementModel
	if err := query.Select("type", "amount").Find(&rows).Error; err != nil {
		return nil, err
	}
	index := map[string]int{}
	var sums []movementSum
	for _, row := range rows {
		i, ok := index[row.Type]
		if !ok {
			i = len(sums)
			index[row.Type] = i
			sums = append(sums, movementSum{Type: row.Type, Total: decimal.Zero})
		}
		sums[i].Total = sums[i].Total.Add(row.Amount)
		sums[i].Count++
	}
	return sums, nil
}

// SetBalance writes an absolute balance. Writing the same amount twice is harmless.
func (s *GormLedgerStore) SetBalance(ctx context.Context, registerID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.CashRegisterModel{}).
		Where("id = ?", registerID).
		Updates(map[string]any{
			"current_amount": amount,
			"updated_at":     at,
		})
	if result.Error != nil {
		return fmt.Errorf("set balance of %s: %w", registerID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListMovements returns the movements of a register in insertion order
func (s *GormLedgerStore) ListMovements(ctx context.Context, registerID uuid.UUID) ([]*cashregister.Movement, error) {
	var rows []models.CashMovementModel
	if err := s.db.WithContext(ctx).
		Where("cash_register_id = ?", registerID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list movements of %s: %w", registerID, err)
	}

	movements := make([]*cashregister.Movement, 0, len(rows))
	for i := range rows {
		m, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// WithinTransaction runs fn against a store bound to one database transaction
func (s *GormLedgerStore) WithinTransaction(ctx context.Context, fn func(store cashregister.LedgerStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLedgerStore{db: tx, validatedCreate: s.validatedCreate, exactNumeric: s.exactNumeric})
	})
}

// GormRestaurantDirectory implements cashregister.RestaurantDirectory using GORM
type GormRestaurantDirectory struct {
	db *gorm.DB
}

// NewGormRestaurantDirectory creates a new GormRestaurantDirectory
func NewGormRestaurantDirectory(db *gorm.DB) *GormRestaurantDirectory {
	return &GormRestaurantDirectory{db: db}
}

// Exists reports whether an active restaurant with the given ID exists
func (d *GormRestaurantDirectory) Exists(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(&models.RestaurantModel{}).
		Where("id = ? AND active = ?", restaurantID, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup restaurant %s: %w", restaurantID, err)
	}
	return count > 0, nil
}

var (
	_ cashregister.LedgerStore         = (*GormLedgerStore)(nil)
	_ cashregister.Transactor          = (*GormLedgerStore)(nil)
	_ cashregister.RestaurantDirectory = (*GormRestaurantDirectory)(nil)
)
