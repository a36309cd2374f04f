package seeder

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	menurepo "github.com/campus-canteen/canteen/internal/repository/menu"
	userrepo "github.com/campus-canteen/canteen/internal/repository/user"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder installs starter directory accounts and menu items into the flat
// files for local/dev setups.
type Seeder struct {
	users  *userrepo.Repository
	menu   *menurepo.Repository
	logger *zap.Logger
}

// New constructs a Seeder over the flat-file repositories.
func New(users *userrepo.Repository, menu *menurepo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, menu: menu, logger: logger}
}

// Run seeds accounts and menu items, upserting by id so reruns are harmless.
func (s *Seeder) Run(ctx context.Context) error {
	users := []entity.User{
		{ID: "hq-1", Role: entity.RoleHeadquarters, Name: "Canteen HQ", Phone: "000-000-0000", Email: "hq@campus-canteen.test"},
		{ID: "admin-1", Role: entity.RoleAdmin, Name: "North Canteen", Phone: "111-111-1111", Email: "north@campus-canteen.test"},
		{ID: "student-1", Role: entity.RoleStudent, Name: "Asha Rao", Phone: "222-222-2222", Email: "asha@campus-canteen.test"},
		{ID: "student-2", Role: entity.RoleStudent, Name: "Dev Mehta", Phone: "333-333-3333", Email: "dev@campus-canteen.test"},
	}
	for _, u := range users {
		if err := s.users.Put(ctx, u); err != nil {
			return err
		}
	}

	items := []entity.MenuItem{
		{ID: "item-1", MerchantID: "admin-1", Name: "Masala Dosa", Price: 60, Available: true},
		{ID: "item-2", MerchantID: "admin-1", Name: "Veg Thali", Price: 90, Available: true},
		{ID: "item-3", MerchantID: "admin-1", Name: "Filter Coffee", Price: 25, Available: true},
	}
	for _, item := range items {
		if err := s.menu.Upsert(ctx, item); err != nil {
			return err
		}
	}

	s.logger.Info("seed data installed",
		zap.Int("users", len(users)),
		zap.Int("menu_items", len(items)),
	)

	return nil
}
