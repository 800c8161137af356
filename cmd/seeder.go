package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with roles, permissions and sample data",
	Long:  `Seed the database with the role/permission matrix plus demo users and organizations for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			clearSeedData(db)
		}

		seedRolesAndPermissions(db)
		seedUsers(db)
		seedSampleData(db)

		fmt.Println("Seeding complete")
	},
}

func clearSeedData(db *gorm.DB) {
	tables := []string{
		"user_roles", "role_permissions", "permissions", "roles",
		"sessions", "opportunity_stage_history", "interactions", "opportunities",
		"contacts", "organizations",
		"product_inventory", "product_price_tiers", "products", "product_categories",
		"users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("failed to clear %s: %v", table, err)
		}
	}
	fmt.Println("Cleared existing data")
}

// permission matrix per role: admin gets the wildcard, managers get full
// access minus user management, reps cannot delete and cannot see reports.
var rolePermissions = map[string][][2]string{
	"admin": {
		{"*", "*"},
	},
	"manager": {
		{"organizations", "read"}, {"organizations", "write"}, {"organizations", "delete"},
		{"contacts", "read"}, {"contacts", "write"}, {"contacts", "delete"},
		{"interactions", "read"}, {"interactions", "write"}, {"interactions", "delete"},
		{"opportunities", "read"}, {"opportunities", "write"}, {"opportunities", "delete"},
		{"products", "read"}, {"products", "write"}, {"products", "delete"},
		{"reports", "read"},
	},
	"sales_rep": {
		{"organizations", "read"}, {"organizations", "write"},
		{"contacts", "read"}, {"contacts", "write"},
		{"interactions", "read"}, {"interactions", "write"},
		{"opportunities", "read"}, {"opportunities", "write"},
		{"products", "read"},
	},
}

var roleLevels = map[string]struct {
	level       int
	description string
}{
	"admin":     {3, "Full access including user and role management"},
	"manager":   {2, "Team-wide record access and reporting"},
	"sales_rep": {1, "Works own accounts and activities"},
}

func seedRolesAndPermissions(db *gorm.DB) {
	for name, meta := range roleLevels {
		if err := db.Exec(`
INSERT INTO roles (name, level, description, created_at, updated_at)
VALUES (?, ?, ?, now(), now())
ON CONFLICT (name) DO UPDATE SET level = EXCLUDED.level, description = EXCLUDED.description, updated_at = now()`,
			name, meta.level, meta.description).Error; err != nil {
			log.Fatalf("failed to seed role %s: %v", name, err)
		}
	}

	for roleName, perms := range rolePermissions {
		for _, p := range perms {
			resource, action := p[0], p[1]
			if err := db.Exec(`
INSERT INTO permissions (resource, action)
VALUES (?, ?)
ON CONFLICT (resource, action) DO NOTHING`, resource, action).Error; err != nil {
				log.Fatalf("failed to seed permission %s:%s: %v", resource, action, err)
			}
			if err := db.Exec(`
INSERT INTO role_permissions (role_id, permission_id)
SELECT r.id, p.id FROM roles r, permissions p
WHERE r.name = ? AND p.resource = ? AND p.action = ?
ON CONFLICT (role_id, permission_id) DO NOTHING`, roleName, resource, action).Error; err != nil {
				log.Fatalf("failed to link %s to %s:%s: %v", roleName, resource, action, err)
			}
		}
	}

	fmt.Println("Seeded roles and permissions")
}

func seedUsers(db *gorm.DB) {
	password := "password"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	users := []struct {
		email     string
		firstName string
		lastName  string
		territory string
		role      string
	}{
		{"admin@pantrycrm.dev", "Ada", "Admin", "", "admin"},
		{"manager@pantrycrm.dev", "Morgan", "Reyes", "midwest", "manager"},
		{"rep@pantrycrm.dev", "Riley", "Chen", "midwest", "sales_rep"},
	}

	for _, u := range users {
		if err := db.Exec(`
INSERT INTO users (email, first_name, last_name, territory, password_hash, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, true, now(), now())
ON CONFLICT (email) DO NOTHING`,
			u.email, u.firstName, u.lastName, u.territory, string(hash)).Error; err != nil {
			log.Fatalf("failed to seed user %s: %v", u.email, err)
		}

		if err := db.Exec(`
INSERT INTO user_roles (user_id, role_id, is_active, assigned_by, assigned_at)
SELECT u.id, r.id, true, u.id, now() FROM users u, roles r
WHERE u.email = ? AND r.name = ?
ON CONFLICT (user_id, role_id) DO NOTHING`, u.email, u.role).Error; err != nil {
			log.Fatalf("failed to assign role %s to %s: %v", u.role, u.email, err)
		}

		fmt.Println("Seeded user:", u.email)
	}
}

func seedSampleData(db *gorm.DB) {
	if err := db.Exec(`
INSERT INTO organizations (name, org_type, priority, segment, is_active, created_by, updated_by, created_at, updated_at)
SELECT 'Lakeshore Bistro Group', 'customer', 'A', 'casual_dining', true, u.id, u.id, now(), now()
FROM users u WHERE u.email = 'rep@pantrycrm.dev'
AND NOT EXISTS (SELECT 1 FROM organizations WHERE name = 'Lakeshore Bistro Group')`).Error; err != nil {
		log.Fatalf("failed to seed sample organization: %v", err)
	}

	if err := db.Exec(`
INSERT INTO product_categories (name, description, is_active, created_at, updated_at)
VALUES ('dry_goods', 'Shelf-stable pantry items', true, now(), now())
ON CONFLICT (name) DO NOTHING`).Error; err != nil {
		log.Fatalf("failed to seed sample category: %v", err)
	}

	fmt.Println("Seeded sample data")
}
