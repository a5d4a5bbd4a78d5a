package repository

import (
	"gorm.io/gorm"

	"github.com/taskvault/taskvault/internal/models"
)

// SeedRoles creates the Admin and User roles if they are missing. The
// account service refuses to start without them.
func SeedRoles(db *gorm.DB) error {
	for _, name := range []string{models.RoleAdmin, models.RoleUser} {
		var n int64
		if err := db.Model(&models.Role{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			if err := db.Create(&models.Role{Name: name}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
