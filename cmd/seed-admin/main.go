// seed-admin creates or updates the bootstrap admin user for a pharmacy. When
// the database holds no pharmacy yet it creates one from the SEED_* env vars.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "farmaAdmin"
	defaultAdminName     = "Farma Admin"
	defaultPharmacyName  = "Farmacia Central"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	adminUsername := envOr("SEED_ADMIN_USERNAME", defaultAdminUsername)
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_PASSWORD is required.")
		os.Exit(1)
	}

	// Tenant hooks need a pharmacy in context, so resolve or create one first.
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	var pharmacy models.Pharmacy
	err := db.WithContext(lookupCtx).Model(&models.Pharmacy{}).First(&pharmacy).Error
	if err == gorm.ErrRecordNotFound {
		pharmacy = models.Pharmacy{
			ID:       uuid.NewString(),
			Name:     envOr("SEED_PHARMACY_NAME", defaultPharmacyName),
			IsActive: utils.NewTrue(),
		}
		if err := db.WithContext(lookupCtx).Create(&pharmacy).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create pharmacy: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created pharmacy %q (%s)\n", pharmacy.Name, pharmacy.ID)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup pharmacy: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetPharmacyIdInContext(ctx, pharmacy.ID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			PharmacyId: pharmacy.ID,
			Username:   adminUsername,
			Name:       envOr("SEED_ADMIN_NAME", defaultAdminName),
			Password:   string(hashed),
			Role:       models.UserRoleAdmin,
			IsActive:   utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user %q for pharmacy %s\n", adminUsername, pharmacy.ID)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
		"password":    string(hashed),
		"pharmacy_id": pharmacy.ID,
		"role":        models.UserRoleAdmin,
		"is_active":   utils.NewTrue(),
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	_ = config.RemoveRedisKey("User:" + adminUsername)
	fmt.Printf("Updated admin user %q\n", adminUsername)
}
