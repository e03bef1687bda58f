// seed-admin creates or updates the tenant admin user and fills in the
// default RBAC grid (Sales gets Own on every resource, Admin role is
// recognized without grid rows).
//
// Usage:
//   DB_URL=... ADMIN_EMAIL=... ADMIN_PASSWORD=... go run ./cmd/seed-admin
//
// Pass TENANT_NAME to target a registered tenant database instead of the
// default connection.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

func main() {
	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_EMAIL and ADMIN_PASSWORD are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if tenant := strings.TrimSpace(os.Getenv("TENANT_NAME")); tenant != "" {
		var err error
		db, err = config.DBForTenant(tenant)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect tenant %q: %v\n", tenant, err)
			os.Exit(1)
		}
	}
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	adminName := strings.TrimSpace(os.Getenv("ADMIN_NAME"))
	if adminName == "" {
		adminName = "Flow Admin"
	}

	var existing models.User
	err = db.Where("lower(email) = ?", adminEmail).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"password":  string(hashed),
			"name":      adminName,
			"is_active": utils.NewTrue(),
			"roles":     existing.Roles,
		}
		if !existing.HasRole("Admin") {
			updates["roles"] = append(existing.Roles, "Admin")
		}
		if err := db.Model(&models.User{}).Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated admin user %q\n", adminEmail)
	case err == gorm.ErrRecordNotFound:
		u := models.User{
			Name:     adminName,
			Email:    adminEmail,
			Password: string(hashed),
			IsActive: utils.NewTrue(),
			Roles:    []string{"Admin"},
		}
		if err := db.Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user %q\n", adminEmail)
	default:
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	if err := seedDefaultGrid(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed default permission grid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Seeded default permission grid")
}

// seedDefaultGrid inserts missing grid cells: role Sales gets Own on every
// resource/privilege pair. Existing cells are left untouched.
func seedDefaultGrid(db *gorm.DB) error {
	resources := []models.RbacResource{
		models.RbacResourceOrder, models.RbacResourceQuote, models.RbacResourceInvoice,
		models.RbacResourceCredit, models.RbacResourceCheck, models.RbacResourceAdjustment,
		models.RbacResourceCustomer, models.RbacResourceJob, models.RbacResourceTask,
		models.RbacResourcePreOpportunity, models.RbacResourceFulfillment,
	}
	privileges := []models.RbacPrivilege{
		models.RbacPrivilegeView, models.RbacPrivilegeCreate,
		models.RbacPrivilegeUpdate, models.RbacPrivilegeDelete,
	}

	for _, resource := range resources {
		for _, privilege := range privileges {
			var count int64
			if err := db.Model(&models.RbacPermission{}).
				Where("role = ? AND resource = ? AND privilege = ?", "Sales", resource, privilege).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			cell := models.RbacPermission{
				Role:      "Sales",
				Resource:  resource,
				Privilege: privilege,
				Option:    models.RbacOptionOwn,
			}
			if err := db.Create(&cell).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
