// Package api wires the HTTP handlers onto the echo router.
package api

import (
	"github.com/jordanlanch/backoffice/pkg/api/handlers"
	custommw "github.com/jordanlanch/backoffice/pkg/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the handlers served under /api/v1.
type Handlers struct {
	CRM       *handlers.CRMHandler
	Sales     *handlers.SalesHandler
	Purchases *handlers.PurchaseHandler
	Projects  *handlers.ProjectHandler
	Dashboard *handlers.DashboardHandler
	Exports   *handlers.ExportHandler
	Phone     *handlers.PhoneHandler
	// Jobs is optional, its routes are only registered when set.
	Jobs *handlers.JobsHandler
}

// Register mounts the authenticated API on g. auth runs before every
// route.
func Register(g *echo.Group, h Handlers, auth echo.MiddlewareFunc) {
	g.Use(auth)

	crm := g.Group("/crm")
	{
		crm.GET("/leads", h.CRM.ListLeads)
		crm.POST("/leads", h.CRM.CreateLead)
		crm.GET("/leads/:id", h.CRM.GetLead)
		crm.PUT("/leads/:id", h.CRM.UpdateLead)
		crm.DELETE("/leads/:id", h.CRM.DeleteLead)
		crm.POST("/leads/:id/convert", h.CRM.ConvertLead)
		crm.GET("/leads/:id/activities", h.CRM.LeadActivities)

		crm.GET("/opportunities", h.CRM.ListOpportunities)
		crm.POST("/opportunities", h.CRM.CreateOpportunity)
		crm.GET("/opportunities/:id", h.CRM.GetOpportunity)
		crm.PUT("/opportunities/:id", h.CRM.UpdateOpportunity)
		crm.DELETE("/opportunities/:id", h.CRM.DeleteOpportunity)
		crm.GET("/opportunities/:id/activities", h.CRM.OpportunityActivities)

		crm.GET("/activities", h.CRM.ListActivities)
		crm.POST("/activities", h.CRM.CreateActivity)
		crm.GET("/activities/:id", h.CRM.GetActivity)
		crm.PUT("/activities/:id", h.CRM.UpdateActivity)
		crm.DELETE("/activities/:id", h.CRM.DeleteActivity)

		crm.GET("/dashboard/summary", h.CRM.DashboardSummary)
		crm.GET("/dashboard/reports", h.CRM.Report)
		crm.GET("/analytics", h.CRM.Analytics)
		crm.GET("/funnel", h.CRM.Funnel)
		crm.GET("/lead-sources", h.CRM.LeadSources)
	}

	sales := g.Group("/sales")
	{
		sales.GET("/customers", h.Sales.ListCustomers)
		sales.POST("/customers", h.Sales.CreateCustomer)
		sales.GET("/customers/:id", h.Sales.GetCustomer)
		sales.PUT("/customers/:id", h.Sales.UpdateCustomer)
		sales.DELETE("/customers/:id", h.Sales.DeleteCustomer)
		sales.GET("/customers/:id/insights", h.Sales.CustomerMetrics)

		sales.GET("/products", h.Sales.ListProducts)
		sales.POST("/products", h.Sales.CreateProduct)
		sales.GET("/products/:id", h.Sales.GetProduct)
		sales.PUT("/products/:id", h.Sales.UpdateProduct)
		sales.DELETE("/products/:id", h.Sales.DeleteProduct)

		sales.GET("/sales", h.Sales.ListSales)
		sales.POST("/sales", h.Sales.CreateSale)
		sales.GET("/sales/:id", h.Sales.GetSale)
		sales.PUT("/sales/:id", h.Sales.UpdateSale)
		sales.DELETE("/sales/:id", h.Sales.DeleteSale)
		sales.GET("/sales/:id/items", h.Sales.ListItems)
		sales.POST("/sales/:id/items", h.Sales.AddItem)
		sales.GET("/sales/:id/totals", h.Sales.Totals)
		sales.PUT("/items/:id", h.Sales.UpdateItem)
		sales.DELETE("/items/:id", h.Sales.DeleteItem)

		sales.GET("/dashboard/summary", h.Sales.Dashboard)
		sales.GET("/dashboard/reports", h.Sales.Report)
		sales.GET("/analytics", h.Sales.Analytics)
		sales.GET("/product-performance", h.Sales.ProductPerformance)
		sales.GET("/customer-insights", h.Sales.CustomerInsights)
	}

	purchases := g.Group("/purchases")
	{
		purchases.GET("/suppliers", h.Purchases.ListSuppliers)
		purchases.POST("/suppliers", h.Purchases.CreateSupplier)
		purchases.GET("/suppliers/:id", h.Purchases.GetSupplier)
		purchases.PUT("/suppliers/:id", h.Purchases.UpdateSupplier)
		purchases.DELETE("/suppliers/:id", h.Purchases.DeleteSupplier)
		purchases.GET("/suppliers/:id/performance", h.Purchases.SupplierMetrics)

		purchases.GET("/purchases", h.Purchases.ListPurchases)
		purchases.POST("/purchases", h.Purchases.CreatePurchase)
		purchases.GET("/purchases/:id", h.Purchases.GetPurchase)
		purchases.PUT("/purchases/:id", h.Purchases.UpdatePurchase)
		purchases.DELETE("/purchases/:id", h.Purchases.DeletePurchase)
		purchases.GET("/purchases/:id/items", h.Purchases.ListItems)
		purchases.POST("/purchases/:id/items", h.Purchases.AddItem)
		purchases.POST("/purchases/:id/receive", h.Purchases.ReceiveItems)
		purchases.PUT("/items/:id", h.Purchases.UpdateItem)
		purchases.DELETE("/items/:id", h.Purchases.DeleteItem)

		purchases.GET("/dashboard/summary", h.Purchases.Dashboard)
		purchases.GET("/dashboard/reports", h.Purchases.Report)
		purchases.GET("/analytics", h.Purchases.Analytics)
		purchases.GET("/supplier-performance", h.Purchases.SupplierPerformance)
		purchases.GET("/inventory", h.Purchases.InventoryReport)
	}

	projects := g.Group("/projects")
	{
		projects.GET("", h.Projects.ListProjects)
		projects.POST("", h.Projects.CreateProject)
		projects.GET("/dashboard", h.Projects.Dashboard)
		projects.GET("/reports", h.Projects.Reports)
		projects.GET("/team-performance", h.Projects.TeamPerformance)
		projects.GET("/workload/:user_id", h.Projects.Workload)

		projects.GET("/tasks/assigned", h.Projects.AssignedTasks)
		projects.GET("/tasks/:id", h.Projects.GetTask)
		projects.PUT("/tasks/:id", h.Projects.UpdateTask)
		projects.DELETE("/tasks/:id", h.Projects.DeleteTask)

		projects.GET("/:id", h.Projects.GetProject)
		projects.PUT("/:id", h.Projects.UpdateProject)
		projects.DELETE("/:id", h.Projects.DeleteProject)
		projects.PUT("/:id/team", h.Projects.SetTeam)
		projects.GET("/:id/tasks", h.Projects.ListTasks)
		projects.POST("/:id/tasks", h.Projects.CreateTask)
		projects.GET("/:id/timeline", h.Projects.Timeline)
	}

	dashboard := g.Group("/dashboard")
	{
		dashboard.GET("/widgets", h.Dashboard.ListWidgets)
		dashboard.POST("/widgets", h.Dashboard.CreateWidget)
		dashboard.GET("/widgets/:id", h.Dashboard.GetWidget)
		dashboard.PUT("/widgets/:id", h.Dashboard.UpdateWidget)
		dashboard.DELETE("/widgets/:id", h.Dashboard.DeleteWidget)

		dashboard.GET("/preferences", h.Dashboard.GetPreference)
		dashboard.PUT("/preferences", h.Dashboard.UpdatePreference)
		dashboard.GET("/widget-settings", h.Dashboard.ListWidgetSettings)
		dashboard.POST("/widget-settings", h.Dashboard.SaveWidgetSettings)

		dashboard.GET("/summary", h.Dashboard.Summary)
		dashboard.GET("/analytics", h.Dashboard.Analytics)
	}

	g.POST("/exports/reports", h.Exports.ExportReports)
	g.POST("/phone/validate", h.Phone.ValidatePhone)
	g.POST("/phone/batch-validate", h.Phone.BatchValidatePhones)

	if h.Jobs != nil {
		admin := g.Group("/admin", custommw.RequireAdmin())
		admin.GET("/jobs", h.Jobs.ListJobs)
		admin.POST("/jobs/:name/run", h.Jobs.RunJob)
	}
}
