// Package testdata generates realistic fake records for development stores
// and tests.
package testdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/shopspring/decimal"
)

// Generator builds unsaved records. The same seed always yields the same
// records.
type Generator struct {
	f     *gofakeit.Faker
	today models.Date
	seq   int
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(seed int64, today models.Date) *Generator {
	return &Generator{f: gofakeit.New(seed), today: today}
}

// next returns a run-unique number used to keep unique columns unique.
func (g *Generator) next() int {
	g.seq++
	return g.seq
}

// Phone returns a Saudi mobile number in E.164 form.
func (g *Generator) Phone() string {
	return "+9665" + g.f.Numerify("########")
}

func (g *Generator) pastDate(days int) models.Date {
	return g.today.AddDays(-g.f.Number(0, days))
}

func (g *Generator) money(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(g.f.Price(min, max)).Round(2)
}

func pick[T any](g *Generator, values []T) T {
	return values[g.f.Number(0, len(values)-1)]
}

// User creates an active user with role.
func (g *Generator) User(role models.Role) models.User {
	first, last := g.f.FirstName(), g.f.LastName()
	username := fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), g.next())
	phone := g.Phone()
	return models.User{
		Username:   username,
		Email:      username + "@backoffice.test",
		FirstName:  first,
		LastName:   last,
		Role:       role,
		Phone:      &phone,
		Department: pick(g, []string{"Sales", "Procurement", "Operations", "Engineering", "Finance"}),
		IsActive:   true,
	}
}

// Customer creates a customer with a unique email.
func (g *Generator) Customer() models.Customer {
	name := g.f.Name()
	return models.Customer{
		Name:    name,
		Email:   fmt.Sprintf("customer%d@%s", g.next(), g.f.DomainName()),
		Phone:   g.Phone(),
		Address: fmt.Sprintf("%s, %s", g.f.Street(), g.f.City()),
		Company: g.f.Company(),
	}
}

// Supplier creates a supplier with a unique email.
func (g *Generator) Supplier() models.Supplier {
	company := g.f.Company()
	return models.Supplier{
		Name:      g.f.Name(),
		Email:     fmt.Sprintf("orders%d@%s", g.next(), g.f.DomainName()),
		Phone:     g.Phone(),
		Address:   fmt.Sprintf("%s, %s", g.f.Street(), g.f.City()),
		Company:   company,
		TaxNumber: g.f.Numerify("3##########0003"),
	}
}

// Product creates a product with a unique SKU.
func (g *Generator) Product() models.Product {
	return models.Product{
		Name:         g.f.ProductName(),
		Description:  g.f.ProductDescription(),
		Price:        g.money(5, 500),
		SKU:          fmt.Sprintf("SKU-%05d", g.next()),
		Stock:        g.f.Number(0, 200),
		MinimumStock: models.DefaultMinimumStock,
	}
}

// Lead creates a lead, assigned to owner when given.
func (g *Generator) Lead(owner *uint) models.Lead {
	first, last := g.f.FirstName(), g.f.LastName()
	l := models.Lead{
		Name:         first + " " + last,
		Company:      g.f.Company(),
		Email:        strings.ToLower(fmt.Sprintf("%s.%s@%s", first, last, g.f.DomainName())),
		Phone:        g.Phone(),
		Source:       pick(g, models.LeadSources),
		Status:       pick(g, models.LeadStatuses),
		AssignedToID: owner,
	}
	created := g.pastDate(365).Time
	l.CreatedAt = created
	switch l.Status {
	case models.LeadStatusNew, models.LeadStatusContacted:
	default:
		qualified := created.Add(time.Duration(g.f.Number(1, 20)) * 24 * time.Hour)
		l.QualifiedAt = &qualified
	}
	if l.Status == models.LeadStatusWon {
		converted := created.Add(time.Duration(g.f.Number(21, 60)) * 24 * time.Hour)
		l.ConvertedAt = &converted
	}
	return l
}

// Opportunity creates an opportunity of customer.
func (g *Generator) Opportunity(customerID uint, owner *uint) models.Opportunity {
	o := models.Opportunity{
		CustomerID:        customerID,
		Title:             g.f.BS() + " deal",
		Description:       g.f.Sentence(10),
		Value:             g.money(1000, 50000),
		Status:            pick(g, models.OpportunityStatuses),
		ExpectedCloseDate: g.today.AddDays(g.f.Number(-30, 90)),
		AssignedToID:      owner,
		Probability:       g.f.Number(10, 90),
	}
	o.CreatedAt = g.pastDate(365).Time
	if o.Status.IsClosed() {
		closed := o.CreatedAt.Add(time.Duration(g.f.Number(5, 60)) * 24 * time.Hour)
		o.ClosedAt = &closed
	}
	return o
}

// Activity creates an activity on a lead.
func (g *Generator) Activity(leadID, createdBy uint) models.Activity {
	return models.Activity{
		LeadID:      &leadID,
		Type:        pick(g, models.ActivityTypes),
		Subject:     g.f.Sentence(4),
		Description: g.f.Sentence(12),
		Date:        g.pastDate(180).Time,
		CreatedByID: createdBy,
	}
}

// Sale creates a sale with between one and four lines of products.
func (g *Generator) Sale(customerID, salesPerson uint, products []models.Product) models.Sale {
	s := models.Sale{
		CustomerID:    customerID,
		SalesPersonID: salesPerson,
		Date:          g.pastDate(365),
		Status:        pick(g, models.SaleStatuses),
		TotalAmount:   decimal.Zero,
	}
	s.StockApplied = s.Status == models.SaleStatusCompleted
	for n := g.f.Number(1, 4); n > 0; n-- {
		p := pick(g, products)
		item := models.SaleItem{ProductID: p.ID, Quantity: g.f.Number(1, 10), UnitPrice: p.Price}
		item.Recalculate()
		s.TotalAmount = s.TotalAmount.Add(item.TotalPrice)
		s.Items = append(s.Items, item)
	}
	return s
}

// Purchase creates a purchase order with between one and four lines.
// Received orders carry delivery and receipt stamps.
func (g *Generator) Purchase(supplierID, createdBy uint, products []models.Product) models.Purchase {
	date := g.pastDate(365)
	expected := date.AddDays(g.f.Number(3, 21))
	p := models.Purchase{
		SupplierID:           supplierID,
		PurchaseDate:         date,
		ReferenceNumber:      fmt.Sprintf("PO-%s-%05d", date.Format("20060102"), g.next()),
		Status:               pick(g, models.PurchaseStatuses),
		ExpectedDeliveryDate: &expected,
		CreatedByID:          createdBy,
	}

	received := p.Status == models.PurchaseStatusReceived
	var delivered *time.Time
	if received {
		actual := expected.AddDays(g.f.Number(-2, 5))
		p.ActualDeliveryDate = &actual
		at := actual.Time
		delivered = &at
	}

	subtotal := decimal.Zero
	for n := g.f.Number(1, 4); n > 0; n-- {
		product := pick(g, products)
		item := models.PurchaseItem{
			ProductID: product.ID,
			Quantity:  g.f.Number(5, 50),
			UnitPrice: product.Price.Mul(decimal.NewFromFloat(0.6)).Round(2),
		}
		item.Recalculate()
		if received {
			item.ReceivedQuantity = item.Quantity
			item.ReceivedAt = delivered
			if g.f.Number(1, 10) == 1 {
				item.QualityIssues = 1
			}
		}
		subtotal = subtotal.Add(item.TotalPrice)
		p.Items = append(p.Items, item)
	}
	p.ApplyTotals(subtotal)
	return p
}

// Project creates a project managed by manager with members on its team.
func (g *Generator) Project(manager uint, members []uint) models.Project {
	start := g.pastDate(180)
	p := models.Project{
		Name:        g.f.AppName(),
		Description: g.f.Sentence(15),
		ManagerID:   manager,
		StartDate:   start,
		EndDate:     start.AddDays(g.f.Number(30, 240)),
		Status:      pick(g, models.ProjectStatuses),
		Budget:      decimal.NewNullDecimal(g.money(5000, 250000)),
	}
	for _, id := range members {
		p.Members = append(p.Members, models.ProjectMember{UserID: id})
	}
	return p
}

// Task creates a task of project, assigned to assignee when given.
func (g *Generator) Task(project models.Project, assignee *uint) models.Task {
	start := project.StartDate.AddDays(g.f.Number(0, 20))
	t := models.Task{
		ProjectID:      project.ID,
		Title:          g.f.HackerVerb() + " " + g.f.HackerNoun(),
		Description:    g.f.Sentence(10),
		AssignedToID:   assignee,
		Status:         pick(g, models.TaskStatuses),
		Priority:       pick(g, models.TaskPriorities),
		StartDate:      start,
		DueDate:        start.AddDays(g.f.Number(1, 30)),
		EstimatedHours: decimal.NewNullDecimal(decimal.NewFromInt(int64(g.f.Number(1, 40)))),
	}
	t.ApplyCompletion(start.AddDays(g.f.Number(1, 30)).Time)
	return t
}

// Widgets returns one active widget per widget type.
func Widgets() []models.DashboardWidget {
	titles := map[models.WidgetType]string{
		models.WidgetSalesChart:      "Sales",
		models.WidgetRevenueChart:    "Revenue",
		models.WidgetTasksSummary:    "My tasks",
		models.WidgetProjectsStatus:  "Projects",
		models.WidgetTopCustomers:    "Top customers",
		models.WidgetInventoryAlerts: "Inventory alerts",
	}
	widgets := make([]models.DashboardWidget, 0, len(models.WidgetTypes))
	for i, wt := range models.WidgetTypes {
		widgets = append(widgets, models.DashboardWidget{
			Title:           titles[wt],
			WidgetType:      wt,
			Position:        i,
			IsActive:        true,
			RefreshInterval: models.DefaultRefreshInterval,
		})
	}
	return widgets
}
