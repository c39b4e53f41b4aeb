package data

import (
	"context"
	"encoding/json"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CostEventPO 账本行持久化对象。维度是带索引的列，
// 聚合过滤全部下推到查询层。
type CostEventPO struct {
	ID                string    `gorm:"primaryKey;size:64"`
	TenantID          string    `gorm:"size:64;not null;index:idx_tenant_occurred,priority:1"`
	OccurredAt        time.Time `gorm:"not null;index:idx_tenant_occurred,priority:2"`
	Provider          string    `gorm:"size:50;index:idx_provider"`
	Model             string    `gorm:"size:100;not null"`
	UserID            string    `gorm:"size:64;index:idx_user"`
	TeamID            string    `gorm:"size:64;index:idx_team"`
	ProjectID         string    `gorm:"size:64;index:idx_project"`
	AppID             string    `gorm:"size:64;index:idx_app"`
	ClientID          string    `gorm:"size:64;index:idx_client"`
	InputTokens       int       `gorm:"not null"`
	OutputTokens      int       `gorm:"not null"`
	TotalTokens       int       `gorm:"not null"`
	Cost              float64   `gorm:"type:decimal(14,6);not null"`
	StatusCode        int       `gorm:"not null"`
	ExternalRequestID string    `gorm:"size:128"`
	LogID             string    `gorm:"size:64"`
	Fingerprint       string    `gorm:"size:64;not null;uniqueIndex:idx_fingerprint"`
	Metadata          string    `gorm:"type:jsonb"`
	CreatedAt         time.Time
}

// TableName 表名
func (CostEventPO) TableName() string {
	return "cost_events"
}

// CostEventRepository 账本仓储实现
type CostEventRepository struct {
	data *Data
	log  *log.Helper
}

// NewCostEventRepo 创建账本仓储
func NewCostEventRepo(data *Data, logger log.Logger) domain.CostEventRepository {
	return &CostEventRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Create 写入账本行。指纹冲突时静默折叠（重试写入幂等）。
func (r *CostEventRepository) Create(ctx context.Context, event *domain.CostEvent) error {
	po := r.toPO(event)

	if err := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoNothing: true,
		}).
		Create(po).Error; err != nil {
		r.log.Errorf("failed to create cost event: %v", err)
		return err
	}
	return nil
}

// CreateWithOutbox 账本行与 outbox 事件同事务落库
func (r *CostEventRepository) CreateWithOutbox(ctx context.Context, event *domain.CostEvent, outbox []*domain.OutboxEvent) error {
	po := r.toPO(event)

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoNothing: true,
		}).Create(po)
		if res.Error != nil {
			return res.Error
		}
		// 重复写入折叠成已有行时不再重复投递下游事件
		if res.RowsAffected == 0 {
			return nil
		}

		for _, ob := range outbox {
			obPO := &OutboxEventPO{
				TenantID:  ob.TenantID,
				EventType: ob.EventType,
				Payload:   string(ob.Payload),
				CreatedAt: ob.CreatedAt,
			}
			if err := tx.Create(obPO).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Errorf("failed to create cost event with outbox: %v", err)
	}
	return err
}

// SumSince 租户周期合计。被拒绝/失败的行成本为零，天然不计入。
func (r *CostEventRepository) SumSince(ctx context.Context, tenantID string, since time.Time) (float64, error) {
	var total float64
	err := r.data.db.WithContext(ctx).
		Model(&CostEventPO{}).
		Select("COALESCE(SUM(cost), 0)").
		Where("tenant_id = ? AND occurred_at >= ?", tenantID, since).
		Scan(&total).Error
	if err != nil {
		r.log.Errorf("failed to sum spend: %v", err)
		return 0, err
	}
	return total, nil
}

// SumForScope 维度等值过滤的周期合计
func (r *CostEventRepository) SumForScope(ctx context.Context, tenantID string, filter domain.ScopeFilter, since time.Time) (float64, error) {
	query := r.data.db.WithContext(ctx).
		Model(&CostEventPO{}).
		Select("COALESCE(SUM(cost), 0)").
		Where("tenant_id = ? AND occurred_at >= ?", tenantID, since)

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TeamID != "" {
		query = query.Where("team_id = ?", filter.TeamID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.AppID != "" {
		query = query.Where("app_id = ?", filter.AppID)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}

	var total float64
	if err := query.Scan(&total).Error; err != nil {
		r.log.Errorf("failed to sum scoped spend: %v", err)
		return 0, err
	}
	return total, nil
}

func (r *CostEventRepository) toPO(event *domain.CostEvent) *CostEventPO {
	metadataJSON, _ := json.Marshal(event.Metadata)

	return &CostEventPO{
		ID:                event.ID,
		TenantID:          event.TenantID,
		OccurredAt:        event.OccurredAt,
		Provider:          event.Provider,
		Model:             event.Model,
		UserID:            event.UserID,
		TeamID:            event.TeamID,
		ProjectID:         event.ProjectID,
		AppID:             event.AppID,
		ClientID:          event.ClientID,
		InputTokens:       event.InputTokens,
		OutputTokens:      event.OutputTokens,
		TotalTokens:       event.TotalTokens,
		Cost:              event.Cost,
		StatusCode:        event.StatusCode,
		ExternalRequestID: event.ExternalRequestID,
		LogID:             event.LogID,
		Fingerprint:       event.Fingerprint,
		Metadata:          string(metadataJSON),
		CreatedAt:         event.CreatedAt,
	}
}
