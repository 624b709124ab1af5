package visibility

import (
	"distributor-portal/internal/domain"

	"gorm.io/gorm"
)

// Detach removes the sharing rows naming a distributor or devices that are
// about to be deleted. It must run inside the deleting transaction.
//
// A row that is the last restriction of its item is kept. An item without
// rows is open to every tenant; the kept row points at nobody, so the item
// stays closed until an admin reshares it.
func Detach(tx *gorm.DB, distributorID uint64, deviceIDs []uint64) error {
	if distributorID != 0 {
		for kind, j := range distributorJunctions {
			if kind == domain.KindRelease {
				continue
			}
			if err := detachDistributor(tx, j, distributorID); err != nil {
				return err
			}
		}
	}
	return detachReleases(tx, distributorID, deviceIDs)
}

func detachDistributor(tx *gorm.DB, j junction, distributorID uint64) error {
	var open []uint64
	err := tx.Table(j.table).
		Where("distributor_id <> ?", distributorID).
		Where(j.contentColumn+" IN (?)", tx.Table(j.table).Select(j.contentColumn).Where("distributor_id = ?", distributorID)).
		Pluck(j.contentColumn, &open).Error
	if err != nil || len(open) == 0 {
		return err
	}
	return tx.Exec("DELETE FROM "+j.table+" WHERE distributor_id = ? AND "+j.contentColumn+" IN ?", distributorID, open).Error
}

func detachReleases(tx *gorm.DB, distributorID uint64, deviceIDs []uint64) error {
	var touched []uint64
	if distributorID != 0 {
		var ids []uint64
		if err := tx.Model(&domain.SoftwareReleaseDistributor{}).
			Where("distributor_id = ?", distributorID).
			Pluck("software_release_id", &ids).Error; err != nil {
			return err
		}
		touched = append(touched, ids...)
	}
	if len(deviceIDs) > 0 {
		var ids []uint64
		if err := tx.Model(&domain.SoftwareReleaseDevice{}).
			Where("device_id IN ?", deviceIDs).
			Pluck("software_release_id", &ids).Error; err != nil {
			return err
		}
		touched = append(touched, ids...)
	}
	if len(touched) == 0 {
		return nil
	}

	var dists []domain.SoftwareReleaseDistributor
	if err := tx.Where("software_release_id IN ?", touched).Find(&dists).Error; err != nil {
		return err
	}
	var devices []domain.SoftwareReleaseDevice
	if err := tx.Where("software_release_id IN ?", touched).Find(&devices).Error; err != nil {
		return err
	}

	gone := make(map[uint64]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		gone[id] = struct{}{}
	}
	remaining := map[uint64]int{}
	for _, d := range dists {
		if d.DistributorID != distributorID {
			remaining[d.SoftwareReleaseID]++
		}
	}
	for _, d := range devices {
		if _, ok := gone[d.DeviceID]; !ok {
			remaining[d.SoftwareReleaseID]++
		}
	}

	open := make([]uint64, 0, len(remaining))
	for id, n := range remaining {
		if n > 0 {
			open = append(open, id)
		}
	}
	if len(open) == 0 {
		return nil
	}

	if distributorID != 0 {
		if err := tx.Where("distributor_id = ? AND software_release_id IN ?", distributorID, open).
			Delete(&domain.SoftwareReleaseDistributor{}).Error; err != nil {
			return err
		}
	}
	if len(deviceIDs) > 0 {
		if err := tx.Where("device_id IN ? AND software_release_id IN ?", deviceIDs, open).
			Delete(&domain.SoftwareReleaseDevice{}).Error; err != nil {
			return err
		}
	}
	return nil
}
