package repository

import (
	"context"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"gorm.io/gorm"
)

type ReliefPackageRepository struct {
	db *gorm.DB
}

func NewReliefPackageRepository(db *gorm.DB) *ReliefPackageRepository {
	return &ReliefPackageRepository{db: db}
}

func (r *ReliefPackageRepository) Create(ctx context.Context, pkg *entity.ReliefPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *ReliefPackageRepository) FindByID(ctx context.Context, id string) (*entity.ReliefPackage, error) {
	var pkg entity.ReliefPackage
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&pkg, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pkg, nil
}

// FindDraftByRequest returns the request's live draft package, if any.
func (r *ReliefPackageRepository) FindDraftByRequest(ctx context.Context, requestID string) (*entity.ReliefPackage, error) {
	var pkg entity.ReliefPackage
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("relief_request_id = ? AND status = ?", requestID, entity.PackageStatusDraft).
		First(&pkg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pkg, nil
}

// ItemsByPackage loads the allocation lines of a package inside tx.
func (r *ReliefPackageRepository) ItemsByPackage(tx *gorm.DB, packageID string) ([]entity.ReliefPackageItem, error) {
	var items []entity.ReliefPackageItem
	err := tx.Where("package_id = ?", packageID).Order("inventory_id").Find(&items).Error
	return items, err
}

// ItemsByPackageAndItem loads the allocation lines of one request line.
func (r *ReliefPackageRepository) ItemsByPackageAndItem(tx *gorm.DB, packageID, itemID string) ([]entity.ReliefPackageItem, error) {
	var items []entity.ReliefPackageItem
	err := tx.Where("package_id = ? AND item_id = ?", packageID, itemID).Order("inventory_id").Find(&items).Error
	return items, err
}

func (r *ReliefPackageRepository) CreateItem(tx *gorm.DB, item *entity.ReliefPackageItem) error {
	return tx.Create(item).Error
}

// DeleteItemsByItem removes the allocation lines of one request line.
func (r *ReliefPackageRepository) DeleteItemsByItem(tx *gorm.DB, packageID, itemID string) error {
	return tx.Where("package_id = ? AND item_id = ?", packageID, itemID).
		Delete(&entity.ReliefPackageItem{}).Error
}

// DeleteItems removes every allocation line of a package. The cascade is an
// explicit step so it commits in the same unit as the reservation release.
func (r *ReliefPackageRepository) DeleteItems(tx *gorm.DB, packageID string) error {
	return tx.Where("package_id = ?", packageID).
		Delete(&entity.ReliefPackageItem{}).Error
}

func (r *ReliefPackageRepository) Delete(tx *gorm.DB, packageID string) error {
	return tx.Delete(&entity.ReliefPackage{}, "id = ?", packageID).Error
}

// UpdateStatus flips the package status inside tx, guarded by the current one.
func (r *ReliefPackageRepository) UpdateStatus(tx *gorm.DB, id, from, to, updatedBy string) (int64, error) {
	res := tx.Model(&entity.ReliefPackage{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"updated_by":  updatedBy,
			"version_nbr": gorm.Expr("version_nbr + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *ReliefPackageRepository) Update(ctx context.Context, pkg *entity.ReliefPackage) error {
	return r.db.WithContext(ctx).Save(pkg).Error
}
