// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safelink-service/internal/domain"
)

// LinkEventModel はgorm用のモデル定義。
// 時刻列は型を固定せず精度だけ指定する（MySQLでは datetime(6)、SQLiteでは datetime になる）。
type LinkEventModel struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	Operation string     `gorm:"type:varchar(16);not null;index:idx_operation_created"`
	BaseURL   string     `gorm:"type:varchar(2048);not null"`
	Result    string     `gorm:"type:varchar(16);not null"`
	Reason    string     `gorm:"type:varchar(255);not null;default:''"`
	IssuedAt  *time.Time `gorm:"precision:6"`
	CreatedAt time.Time  `gorm:"precision:6;not null;autoCreateTime;index:idx_operation_created"`
}

// TableName はテーブル名を返す。
func (LinkEventModel) TableName() string {
	return "link_events"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (e *LinkEventModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (e *LinkEventModel) toDomain() *domain.LinkEvent {
	return &domain.LinkEvent{
		ID:        e.ID,
		Operation: domain.LinkOperation(e.Operation),
		BaseURL:   e.BaseURL,
		Result:    domain.LinkResult(e.Result),
		Reason:    e.Reason,
		IssuedAt:  e.IssuedAt,
		CreatedAt: e.CreatedAt,
	}
}

// LinkEventRepository はリンク監査イベントの永続化を提供する。
type LinkEventRepository struct {
	db *gorm.DB
}

// NewLinkEventRepository は新しいLinkEventRepositoryを生成する。
func NewLinkEventRepository(db *gorm.DB) *LinkEventRepository {
	return &LinkEventRepository{db: db}
}

// Create はイベントを保存し、採番されたIDと作成日時を反映する。
func (r *LinkEventRepository) Create(ctx context.Context, event *domain.LinkEvent) error {
	model := &LinkEventModel{
		ID:        event.ID,
		Operation: string(event.Operation),
		BaseURL:   event.BaseURL,
		Result:    string(event.Result),
		Reason:    event.Reason,
		IssuedAt:  event.IssuedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create link event",
			"operation", "create",
			"link_operation", event.Operation,
			"error", err,
		)
		return err
	}
	event.ID = model.ID
	event.CreatedAt = model.CreatedAt
	return nil
}

// FindRecent は新しい順にイベントを取得する。operation が空の場合は全操作が対象。
func (r *LinkEventRepository) FindRecent(ctx context.Context, operation domain.LinkOperation, limit int) ([]*domain.LinkEvent, error) {
	query := r.db.WithContext(ctx).Model(&LinkEventModel{})
	if operation != "" {
		query = query.Where("operation = ?", string(operation))
	}

	var models []LinkEventModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find recent link events",
			"operation", "find_recent",
			"link_operation", operation,
			"error", err,
		)
		return nil, err
	}

	events := make([]*domain.LinkEvent, len(models))
	for i := range models {
		events[i] = models[i].toDomain()
	}
	return events, nil
}
