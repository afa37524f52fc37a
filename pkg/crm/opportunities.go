package crm

import (
	"context"
	"time"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceOpportunity = "opportunity"

// OpportunityRequest is the payload for creating or replacing an opportunity.
type OpportunityRequest struct {
	CustomerID        uint                     `json:"customer_id" validate:"required"`
	Title             string                   `json:"title" validate:"required,max=200"`
	Description       string                   `json:"description"`
	Value             decimal.Decimal          `json:"value"`
	Status            models.OpportunityStatus `json:"status" validate:"omitempty,oneof=identified qualified proposal negotiation closed_won closed_lost"`
	ExpectedCloseDate models.Date              `json:"expected_close_date" validate:"required"`
	AssignedTo        *uint                    `json:"assigned_to"`
	Probability       *int                     `json:"probability" validate:"omitempty,gte=0,lte=100"`
	Notes             string                   `json:"notes"`
}

// OpportunityFilter narrows an opportunity listing.
type OpportunityFilter struct {
	Status string
}

var opportunityListing = listing.Spec{
	Search: []string{
		listing.Like("opportunities.title"),
		listing.Like("opportunities.description"),
		"opportunities.customer_id IN (SELECT id FROM customers WHERE " + listing.Like("customers.name") + ")",
	},
	Orderings: map[string]string{
		"expected_close_date": "opportunities.expected_close_date",
		"value":               "opportunities.value",
		"probability":         "opportunities.probability",
		"created_at":          "opportunities.created_at",
	},
	Default: "expected_close_date",
}

// ListOpportunities returns one page of the opportunities visible to actor.
func (s *Service) ListOpportunities(ctx context.Context, actor scope.Actor, filter OpportunityFilter, p listing.Params) (models.ListResponse[models.Opportunity], error) {
	q := scope.Opportunities.Apply(s.db.WithContext(ctx).Model(&models.Opportunity{}), actor)
	if filter.Status != "" {
		q = q.Where("opportunities.status = ?", filter.Status)
	}
	return listing.Page[models.Opportunity](q, opportunityListing, p)
}

// GetOpportunity returns an opportunity visible to actor with its customer.
func (s *Service) GetOpportunity(ctx context.Context, actor scope.Actor, id uint) (*models.Opportunity, error) {
	return s.findOpportunity(s.db.WithContext(ctx).Preload("Customer").Preload("AssignedTo"), actor, id)
}

func (s *Service) findOpportunity(db *gorm.DB, actor scope.Actor, id uint) (*models.Opportunity, error) {
	var opp models.Opportunity
	err := scope.Opportunities.Apply(db.Model(&models.Opportunity{}), actor).
		Where("opportunities.id = ?", id).
		First(&opp).Error
	if err != nil {
		return nil, database.Translate(err, resourceOpportunity)
	}
	return &opp, nil
}

// CreateOpportunity validates and stores a new opportunity.
func (s *Service) CreateOpportunity(ctx context.Context, actor scope.Actor, req OpportunityRequest) (*models.Opportunity, error) {
	opp := models.Opportunity{Probability: models.DefaultProbability}
	if err := s.applyOpportunity(&opp, req); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&opp).Error; err != nil {
		return nil, database.Translate(err, resourceOpportunity)
	}

	s.log.Info("opportunity created", "opportunity_id", opp.ID, "user_id", actor.UserID)
	return &opp, nil
}

// UpdateOpportunity replaces the editable fields of an opportunity.
func (s *Service) UpdateOpportunity(ctx context.Context, actor scope.Actor, id uint, req OpportunityRequest) (*models.Opportunity, error) {
	db := s.db.WithContext(ctx)
	opp, err := s.findOpportunity(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyOpportunity(opp, req); err != nil {
		return nil, err
	}

	if err := db.Omit(clause.Associations).Save(opp).Error; err != nil {
		return nil, database.Translate(err, resourceOpportunity)
	}
	return opp, nil
}

// DeleteOpportunity removes an opportunity visible to actor.
func (s *Service) DeleteOpportunity(ctx context.Context, actor scope.Actor, id uint) error {
	res := scope.Opportunities.Apply(s.db.WithContext(ctx), actor).
		Where("opportunities.id = ?", id).
		Delete(&models.Opportunity{})
	if res.Error != nil {
		return database.Translate(res.Error, resourceOpportunity)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceOpportunity)
	}
	return nil
}

// OpportunityActivities lists the activities of a visible opportunity.
func (s *Service) OpportunityActivities(ctx context.Context, actor scope.Actor, id uint) ([]models.Activity, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findOpportunity(db, actor, id); err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0)
	if err := db.Where("opportunity_id = ?", id).Order("date DESC").Find(&activities).Error; err != nil {
		return nil, database.Translate(err, resourceActivity)
	}
	return activities, nil
}

func (s *Service) applyOpportunity(opp *models.Opportunity, req OpportunityRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.Value.IsNegative() {
		return domain.NewFieldError("value", "must not be negative")
	}

	opp.CustomerID = req.CustomerID
	opp.Customer = nil
	opp.Title = req.Title
	opp.Description = req.Description
	opp.Value = req.Value.Round(2)
	opp.ExpectedCloseDate = req.ExpectedCloseDate
	opp.AssignedToID = req.AssignedTo
	opp.AssignedTo = nil
	opp.Notes = req.Notes
	if req.Probability != nil {
		opp.Probability = *req.Probability
	}
	if req.Status != "" {
		opp.Status = req.Status
	}
	if opp.Status == "" {
		opp.Status = models.OpportunityStatusIdentified
	}
	stampClosed(opp, s.now())
	return nil
}

// stampClosed keeps closed_at in step with the status: set when the
// opportunity closes, cleared when it is reopened.
func stampClosed(opp *models.Opportunity, now time.Time) {
	switch {
	case !opp.Status.IsClosed():
		opp.ClosedAt = nil
	case opp.ClosedAt == nil:
		opp.ClosedAt = &now
	}
}
