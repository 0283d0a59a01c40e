package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

// Querier реализуют и *sqlx.DB, и *sqlx.Tx: репозитории не знают, в транзакции они или нет
type Querier = sqlx.ExtContext

const uniqueViolation = "23505"

// TxManager выдаёт атомарную единицу работы поверх одного *sqlx.DB
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Querier возвращает хендл для чтений вне транзакции
func (m *TxManager) Querier() Querier {
	return m.db
}

// WithTx выполняет fn в одной транзакции. Любая ошибка fn или отмена ctx
// откатывают все изменения; частично применённое состояние наружу не попадает.
func (m *TxManager) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = multierr.Append(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
