package crm

import (
	"context"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConvertLeadRequest carries the details of the customer and opportunity a
// lead turns into.
type ConvertLeadRequest struct {
	CustomerName      string           `json:"customer_name" validate:"required,max=200"`
	OpportunityTitle  string           `json:"opportunity_title" validate:"required,max=200"`
	OpportunityValue  *decimal.Decimal `json:"opportunity_value" validate:"required"`
	ExpectedCloseDate models.Date      `json:"expected_close_date" validate:"required"`
}

// ConversionResult identifies the records created by a conversion.
type ConversionResult struct {
	Message       string `json:"message"`
	CustomerID    uint   `json:"customer_id"`
	OpportunityID uint   `json:"opportunity_id"`
}

// LeadConvertedEvent is published once a conversion committed.
type LeadConvertedEvent struct {
	LeadID        uint `json:"lead_id"`
	CustomerID    uint `json:"customer_id"`
	OpportunityID uint `json:"opportunity_id"`
	ConvertedBy   uint `json:"converted_by"`
}

// ConvertLead turns a lead into a customer and a qualified opportunity and
// marks the lead won. Either every step is stored or none is.
func (s *Service) ConvertLead(ctx context.Context, actor scope.Actor, leadID uint, req ConvertLeadRequest) (*ConversionResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.OpportunityValue.IsNegative() {
		return nil, domain.NewFieldError("opportunity_value", "must not be negative")
	}

	var result ConversionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := s.findLead(tx, scope.LeadOwnership, actor, leadID)
		if err != nil {
			return err
		}
		if lead.Status == models.LeadStatusWon {
			return domain.NewConflictError("lead has already been converted")
		}

		customer := models.Customer{
			Name:    req.CustomerName,
			Email:   lead.Email,
			Phone:   lead.Phone,
			Company: lead.Company,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return database.Translate(err, "customer")
		}

		opp := models.Opportunity{
			CustomerID:        customer.ID,
			Title:             req.OpportunityTitle,
			Description:       lead.Notes,
			Value:             req.OpportunityValue.Round(2),
			Status:            models.OpportunityStatusQualified,
			ExpectedCloseDate: req.ExpectedCloseDate,
			AssignedToID:      lead.AssignedToID,
			Probability:       models.DefaultProbability,
		}
		if err := tx.Omit(clause.Associations).Create(&opp).Error; err != nil {
			return database.Translate(err, resourceOpportunity)
		}

		now := s.now()
		res := tx.Model(&models.Lead{}).
			Where("id = ? AND status <> ?", lead.ID, models.LeadStatusWon).
			Updates(map[string]any{
				"status":       models.LeadStatusWon,
				"converted_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return database.Translate(res.Error, resourceLead)
		}
		if res.RowsAffected == 0 {
			return domain.NewConflictError("lead has already been converted")
		}

		result.Message = "Lead converted successfully"
		result.CustomerID = customer.ID
		result.OpportunityID = opp.ID
		return nil
	})
	if err != nil {
		if _, ok := domain.AsDomainError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to convert lead: %w", err)
	}

	s.log.Info("lead converted",
		"lead_id", leadID,
		"customer_id", result.CustomerID,
		"opportunity_id", result.OpportunityID,
		"user_id", actor.UserID,
	)
	events.Emit(ctx, s.events, s.log, events.SubjectLeadConverted, LeadConvertedEvent{
		LeadID:        leadID,
		CustomerID:    result.CustomerID,
		OpportunityID: result.OpportunityID,
		ConvertedBy:   actor.UserID,
	})
	return &result, nil
}
