package repository

import (
	"context"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"gorm.io/gorm"
)

type WarehouseRepository struct {
	db *gorm.DB
}

func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

func (r *WarehouseRepository) Create(ctx context.Context, w *entity.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WarehouseRepository) FindByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *WarehouseRepository) ListActive(ctx context.Context) ([]entity.Warehouse, error) {
	var ws []entity.Warehouse
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.WarehouseStatusActive).
		Order("code").
		Find(&ws).Error
	return ws, err
}

type AgencyRepository struct {
	db *gorm.DB
}

func NewAgencyRepository(db *gorm.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

func (r *AgencyRepository) Create(ctx context.Context, a *entity.Agency) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AgencyRepository) FindByID(ctx context.Context, id string) (*entity.Agency, error) {
	var a entity.Agency
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgencyRepository) List(ctx context.Context) ([]entity.Agency, error) {
	var as []entity.Agency
	err := r.db.WithContext(ctx).Order("name").Find(&as).Error
	return as, err
}
