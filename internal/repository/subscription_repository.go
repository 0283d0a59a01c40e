package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"tierdrive/internal/domain"
)

type SubscriptionRepository struct{}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{}
}

// FindActivePolicy читает активную подписку вместе с лимитами пакета
func (r *SubscriptionRepository) FindActivePolicy(ctx context.Context, q Querier, userID string) (*domain.Policy, error) {
	query := `
        SELECT
            p.id AS package_id,
            p.slug AS package_slug,
            p.max_folders,
            p.max_nesting_level,
            p.max_file_size_mb,
            p.total_file_limit,
            p.files_per_folder_limit,
            p.allowed_mime_types
        FROM user_subscriptions s
        JOIN subscription_packages p ON p.id = s.package_id
        WHERE s.user_id = $1 AND s.is_active = TRUE
        LIMIT 1`

	var policy domain.Policy
	err := sqlx.GetContext(ctx, q, &policy, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionRequired
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &policy, nil
}

// Activate завершает текущую подписку пользователя и открывает новую.
// Вызывается внутри транзакции: advisory-блокировка по пользователю держится до её конца.
func (r *SubscriptionRepository) Activate(ctx context.Context, q Querier, userID string, packageID uuid.UUID) (*domain.UserSubscription, error) {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "subscription:"+userID); err != nil {
		return nil, fmt.Errorf("failed to lock subscription: %w", err)
	}

	endQuery := `
        UPDATE user_subscriptions
        SET is_active = FALSE,
            ended_at = CURRENT_TIMESTAMP
        WHERE user_id = $1 AND is_active = TRUE`

	if _, err := q.ExecContext(ctx, endQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to end previous subscription: %w", err)
	}

	insertQuery := `
        WITH inserted AS (
            INSERT INTO user_subscriptions (user_id, package_id, is_active)
            VALUES ($1, $2, TRUE)
            RETURNING id, user_id, package_id, is_active, started_at, ended_at
        )
        SELECT i.id, i.user_id, i.package_id, i.is_active, i.started_at, i.ended_at,
               p.name AS package_name, p.slug AS package_slug
        FROM inserted i
        JOIN subscription_packages p ON p.id = i.package_id`

	var sub domain.UserSubscription
	if err := sqlx.GetContext(ctx, q, &sub, insertQuery, userID, packageID); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return &sub, nil
}

// ListByUser возвращает историю подписок, новые первыми
func (r *SubscriptionRepository) ListByUser(ctx context.Context, q Querier, userID string) ([]domain.UserSubscription, error) {
	query := `
        SELECT s.id, s.user_id, s.package_id, s.is_active, s.started_at, s.ended_at,
               p.name AS package_name, p.slug AS package_slug
        FROM user_subscriptions s
        JOIN subscription_packages p ON p.id = s.package_id
        WHERE s.user_id = $1
        ORDER BY s.started_at DESC, s.id`

	subs := make([]domain.UserSubscription, 0)
	if err := sqlx.SelectContext(ctx, q, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}
