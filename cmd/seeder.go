package cmd

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const seedTenantSlug = "warung-senja"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo tenant, its tables, staff accounts and menu for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if _, err := db.Exec(`TRUNCATE gateway_callbacks, payments, order_logs, order_item_options, order_items, orders,
				menu_option_groups, option_items, option_groups, menus, staff_users, dining_tables, tenants RESTART IDENTITY CASCADE`); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		tenantID := seedTenant(db)
		seedTables(db, tenantID)
		seedStaff(db, tenantID)
		seedMenu(db, tenantID)

		fmt.Println("Seed finished for tenant:", seedTenantSlug)
	},
}

func seedTenant(db *sqlx.DB) int64 {
	var id int64
	err := db.Get(&id, "SELECT id FROM tenants WHERE slug = $1", seedTenantSlug)
	if err == nil {
		fmt.Println("tenant already exists:", seedTenantSlug)
		return id
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		log.Fatalf("failed to look up tenant: %v", err)
	}

	if err := db.Get(&id, `INSERT INTO tenants (slug, name, tax_percentage, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, true, now(), now()) RETURNING id`, seedTenantSlug, "Warung Senja", "11.00"); err != nil {
		log.Fatalf("failed to insert tenant: %v", err)
	}
	fmt.Println("Seeded tenant:", seedTenantSlug)
	return id
}

func seedTables(db *sqlx.DB, tenantID int64) {
	tables := []map[string]interface{}{
		{"tenant_id": tenantID, "name": "Table 1", "qr_token": "senja-t1"},
		{"tenant_id": tenantID, "name": "Table 2", "qr_token": "senja-t2"},
		{"tenant_id": tenantID, "name": "Terrace", "qr_token": "senja-terrace"},
	}
	for _, t := range tables {
		if _, err := db.NamedExec(`INSERT INTO dining_tables (tenant_id, name, qr_token, is_active, created_at, updated_at)
			VALUES (:tenant_id, :name, :qr_token, true, now(), now()) ON CONFLICT (qr_token) DO NOTHING`, t); err != nil {
			log.Fatalf("failed to insert table %s: %v", t["name"], err)
		}
	}
	fmt.Println("Seeded dining tables")
}

func seedStaff(db *sqlx.DB, tenantID int64) {
	password := "password"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	staff := []struct {
		Email    string
		Name     string
		Role     string
		TenantID *int64
	}{
		{"root@mail.com", "Root", "super_admin", nil},
		{"owner@senja.com", "Senja Owner", "tenant_admin", &tenantID},
		{"cashier@senja.com", "Senja Cashier", "cashier", &tenantID},
		{"kitchen@senja.com", "Senja Kitchen", "kitchen", &tenantID},
	}

	for _, s := range staff {
		res, err := db.NamedExec(`INSERT INTO staff_users (tenant_id, email, name, password_hash, role, is_active, created_at, updated_at)
			VALUES (:tenant_id, :email, :name, :password_hash, :role, true, now(), now()) ON CONFLICT (email) DO NOTHING`,
			map[string]interface{}{
				"tenant_id":     s.TenantID,
				"email":         s.Email,
				"name":          s.Name,
				"password_hash": string(hash),
				"role":          s.Role,
			})
		if err != nil {
			log.Fatalf("failed to insert staff %s: %v", s.Email, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			fmt.Println("staff already exists:", s.Email)
			continue
		}
		fmt.Printf("Seeded %s: %s\n", s.Role, s.Email)
	}
}

func seedMenu(db *sqlx.DB, tenantID int64) {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM menus WHERE tenant_id = $1", tenantID); err != nil {
		log.Fatalf("failed to count menus: %v", err)
	}
	if count > 0 {
		fmt.Println("menu already seeded")
		return
	}

	menus := []struct {
		Name  string
		Price string
	}{
		{"Nasi Goreng", "25000.00"},
		{"Mie Ayam", "20000.00"},
		{"Es Teh", "5000.00"},
	}
	menuIDs := make([]int64, 0, len(menus))
	for _, m := range menus {
		var id int64
		if err := db.Get(&id, `INSERT INTO menus (tenant_id, name, price, is_available, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now()) RETURNING id`, tenantID, m.Name, m.Price); err != nil {
			log.Fatalf("failed to insert menu %s: %v", m.Name, err)
		}
		menuIDs = append(menuIDs, id)
	}

	var spiceGroupID int64
	if err := db.Get(&spiceGroupID, `INSERT INTO option_groups (tenant_id, name, is_active, created_at, updated_at)
		VALUES ($1, 'Spice Level', true, now(), now()) RETURNING id`, tenantID); err != nil {
		log.Fatalf("failed to insert option group: %v", err)
	}

	items := []struct {
		Label string
		Extra string
	}{
		{"Mild", "0.00"},
		{"Hot", "2000.00"},
		{"Extra Hot", "3000.00"},
	}
	for _, it := range items {
		if _, err := db.Exec(`INSERT INTO option_items (option_group_id, label, extra_price, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())`, spiceGroupID, it.Label, it.Extra); err != nil {
			log.Fatalf("failed to insert option item %s: %v", it.Label, err)
		}
	}

	// spice level applies to the two food menus only
	for _, menuID := range menuIDs[:2] {
		if _, err := db.Exec("INSERT INTO menu_option_groups (menu_id, option_group_id) VALUES ($1, $2)", menuID, spiceGroupID); err != nil {
			log.Fatalf("failed to attach option group to menu %d: %v", menuID, err)
		}
	}

	fmt.Println("Seeded menu with", len(menus), "items")
}
