package testdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/models"
	"gorm.io/gorm"
)

// ErrAlreadySeeded is returned when the store already holds users.
var ErrAlreadySeeded = errors.New("store already contains data")

// SeedConfig sets how many records of each kind are created.
type SeedConfig struct {
	Seed      int64
	Managers  int
	Employees int
	Customers int
	Suppliers int
	Products  int
	Leads     int
	Sales     int
	Purchases int
	Projects  int
	BatchSize int
}

// DefaultSeedConfig is a small but complete data set.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Managers:  2,
		Employees: 6,
		Customers: 40,
		Suppliers: 10,
		Products:  30,
		Leads:     80,
		Sales:     120,
		Purchases: 40,
		Projects:  6,
		BatchSize: 100,
	}
}

// SeedResult counts what was created.
type SeedResult struct {
	Users         int `json:"users"`
	Customers     int `json:"customers"`
	Suppliers     int `json:"suppliers"`
	Products      int `json:"products"`
	Leads         int `json:"leads"`
	Activities    int `json:"activities"`
	Opportunities int `json:"opportunities"`
	Sales         int `json:"sales"`
	Purchases     int `json:"purchases"`
	Projects      int `json:"projects"`
	Tasks         int `json:"tasks"`
	Widgets       int `json:"widgets"`
}

// Seed fills an empty store in one transaction. The first user is the
// admin "admin".
func Seed(ctx context.Context, db *gorm.DB, cfg SeedConfig) (*SeedResult, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if users > 0 {
		return nil, ErrAlreadySeeded
	}

	g := NewGenerator(cfg.Seed, models.Today())
	var res SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := seeder{tx: tx, g: g, cfg: cfg, res: &res}
		return s.run()
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type seeder struct {
	tx  *gorm.DB
	g   *Generator
	cfg SeedConfig
	res *SeedResult

	admin     models.User
	managers  []models.User
	employees []models.User
	staff     []uint
	customers []models.Customer
	suppliers []models.Supplier
	products  []models.Product
}

// BulkInsert inserts records in batches.
func BulkInsert[T any](tx *gorm.DB, records []T, batchSize int) error {
	if len(records) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&records, batchSize).Error; err != nil {
		var zero T
		return fmt.Errorf("failed to insert %T records: %w", zero, err)
	}
	return nil
}

func (s *seeder) run() error {
	steps := []func() error{
		s.users, s.catalog, s.crm, s.sales, s.purchases, s.projects, s.widgets,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) users() error {
	s.admin = s.g.User(models.RoleAdmin)
	s.admin.Username = "admin"
	s.admin.Email = "admin@backoffice.test"
	if err := s.tx.Create(&s.admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	for i := 0; i < s.cfg.Managers; i++ {
		s.managers = append(s.managers, s.g.User(models.RoleManager))
	}
	for i := 0; i < s.cfg.Employees; i++ {
		s.employees = append(s.employees, s.g.User(models.RoleEmployee))
	}
	if err := BulkInsert(s.tx, s.managers, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := BulkInsert(s.tx, s.employees, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := s.reload(&s.managers, "role = ?", models.RoleManager); err != nil {
		return err
	}
	if err := s.reload(&s.employees, "role = ?", models.RoleEmployee); err != nil {
		return err
	}

	s.staff = []uint{s.admin.ID}
	for _, u := range append(append([]models.User{}, s.managers...), s.employees...) {
		s.staff = append(s.staff, u.ID)
	}
	s.res.Users = len(s.staff)
	return nil
}

// reload reads rows back so batch inserted records carry their ids on
// every driver.
func (s *seeder) reload(dst any, query string, args ...any) error {
	if err := s.tx.Where(query, args...).Order("id ASC").Find(dst).Error; err != nil {
		return fmt.Errorf("failed to reload seeded rows: %w", err)
	}
	return nil
}

func (s *seeder) owner() *uint {
	if s.g.f.Number(1, 5) == 1 {
		return nil
	}
	id := pick(s.g, s.staff)
	return &id
}

func (s *seeder) catalog() error {
	for i := 0; i < s.cfg.Customers; i++ {
		s.customers = append(s.customers, s.g.Customer())
	}
	for i := 0; i < s.cfg.Suppliers; i++ {
		s.suppliers = append(s.suppliers, s.g.Supplier())
	}
	for i := 0; i < s.cfg.Products; i++ {
		s.products = append(s.products, s.g.Product())
	}
	if err := BulkInsert(s.tx, s.customers, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := BulkInsert(s.tx, s.suppliers, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := BulkInsert(s.tx, s.products, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := s.reload(&s.customers, "1 = 1"); err != nil {
		return err
	}
	if err := s.reload(&s.suppliers, "1 = 1"); err != nil {
		return err
	}
	if err := s.reload(&s.products, "1 = 1"); err != nil {
		return err
	}
	s.res.Customers, s.res.Suppliers, s.res.Products = len(s.customers), len(s.suppliers), len(s.products)
	return nil
}

func (s *seeder) crm() error {
	leads := make([]models.Lead, 0, s.cfg.Leads)
	for i := 0; i < s.cfg.Leads; i++ {
		leads = append(leads, s.g.Lead(s.owner()))
	}
	if err := BulkInsert(s.tx, leads, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := s.reload(&leads, "1 = 1"); err != nil {
		return err
	}

	var activities []models.Activity
	for _, l := range leads {
		author := s.admin.ID
		if l.AssignedToID != nil {
			author = *l.AssignedToID
		}
		for n := s.g.f.Number(0, 3); n > 0; n-- {
			activities = append(activities, s.g.Activity(l.ID, author))
		}
	}
	if err := BulkInsert(s.tx, activities, s.cfg.BatchSize); err != nil {
		return err
	}

	var opportunities []models.Opportunity
	if len(s.customers) > 0 {
		for i := 0; i < s.cfg.Leads/2; i++ {
			opportunities = append(opportunities, s.g.Opportunity(pick(s.g, s.customers).ID, s.owner()))
		}
	}
	if err := BulkInsert(s.tx, opportunities, s.cfg.BatchSize); err != nil {
		return err
	}

	s.res.Leads, s.res.Activities, s.res.Opportunities = len(leads), len(activities), len(opportunities)
	return nil
}

func (s *seeder) sales() error {
	if len(s.customers) == 0 || len(s.products) == 0 {
		return nil
	}
	for i := 0; i < s.cfg.Sales; i++ {
		sale := s.g.Sale(pick(s.g, s.customers).ID, pick(s.g, s.staff), s.products)
		if err := s.tx.Create(&sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		s.res.Sales++
	}
	return nil
}

func (s *seeder) purchases() error {
	if len(s.suppliers) == 0 || len(s.products) == 0 {
		return nil
	}
	for i := 0; i < s.cfg.Purchases; i++ {
		p := s.g.Purchase(pick(s.g, s.suppliers).ID, pick(s.g, s.staff), s.products)
		if err := s.tx.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}
		s.res.Purchases++
	}
	return nil
}

func (s *seeder) projects() error {
	managers := s.managers
	if len(managers) == 0 {
		managers = []models.User{s.admin}
	}
	for i := 0; i < s.cfg.Projects; i++ {
		var team []uint
		for _, e := range s.employees {
			if s.g.f.Bool() {
				team = append(team, e.ID)
			}
		}
		p := s.g.Project(pick(s.g, managers).ID, team)
		if err := s.tx.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		s.res.Projects++

		tasks := make([]models.Task, 0)
		for n := s.g.f.Number(3, 10); n > 0; n-- {
			var assignee *uint
			if len(team) > 0 {
				id := pick(s.g, team)
				assignee = &id
			}
			tasks = append(tasks, s.g.Task(p, assignee))
		}
		if err := BulkInsert(s.tx, tasks, s.cfg.BatchSize); err != nil {
			return err
		}
		s.res.Tasks += len(tasks)
	}
	return nil
}

func (s *seeder) widgets() error {
	widgets := Widgets()
	if err := BulkInsert(s.tx, widgets, s.cfg.BatchSize); err != nil {
		return err
	}
	s.res.Widgets = len(widgets)
	return nil
}
