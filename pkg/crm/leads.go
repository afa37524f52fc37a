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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceLead = "lead"

// LeadRequest is the payload for creating or replacing a lead.
type LeadRequest struct {
	Name       string            `json:"name" validate:"required,max=200"`
	Company    string            `json:"company" validate:"max=200"`
	Email      string            `json:"email" validate:"required,email,max=254"`
	Phone      string            `json:"phone" validate:"required"`
	Source     models.LeadSource `json:"source" validate:"required,oneof=website referral social_media direct other"`
	Status     models.LeadStatus `json:"status" validate:"omitempty,oneof=new contacted qualified proposal negotiation won lost"`
	AssignedTo *uint             `json:"assigned_to"`
	Notes      string            `json:"notes"`
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	Status string
	Source string
}

var leadListing = listing.Spec{
	Search: []string{
		listing.Like("leads.name"),
		listing.Like("leads.company"),
		listing.Like("leads.email"),
		listing.Like("leads.phone"),
	},
	Orderings: map[string]string{
		"created_at": "leads.created_at",
		"name":       "leads.name",
		"status":     "leads.status",
	},
	Default: "-created_at",
}

// ListLeads returns one page of the leads visible to actor.
func (s *Service) ListLeads(ctx context.Context, actor scope.Actor, filter LeadFilter, p listing.Params) (models.ListResponse[models.Lead], error) {
	q := scope.Leads.Apply(s.db.WithContext(ctx).Model(&models.Lead{}), actor)
	if filter.Status != "" {
		q = q.Where("leads.status = ?", filter.Status)
	}
	if filter.Source != "" {
		q = q.Where("leads.source = ?", filter.Source)
	}
	return listing.Page[models.Lead](q, leadListing, p)
}

// GetLead returns a lead assigned to actor. Unassigned leads show up in
// listings but only admins open them.
func (s *Service) GetLead(ctx context.Context, actor scope.Actor, id uint) (*models.Lead, error) {
	return s.findLead(s.db.WithContext(ctx).Preload("AssignedTo"), scope.LeadOwnership, actor, id)
}

func (s *Service) findLead(db *gorm.DB, policy scope.Policy, actor scope.Actor, id uint) (*models.Lead, error) {
	var lead models.Lead
	err := policy.Apply(db.Model(&models.Lead{}), actor).
		Where("leads.id = ?", id).
		First(&lead).Error
	if err != nil {
		return nil, database.Translate(err, resourceLead)
	}
	return &lead, nil
}

// CreateLead validates and stores a new lead.
func (s *Service) CreateLead(ctx context.Context, actor scope.Actor, req LeadRequest) (*models.Lead, error) {
	var lead models.Lead
	if err := s.applyLead(&lead, req); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&lead).Error; err != nil {
		return nil, database.Translate(err, resourceLead)
	}

	s.log.Info("lead created", "lead_id", lead.ID, "user_id", actor.UserID)
	return &lead, nil
}

// UpdateLead replaces the editable fields of a lead.
func (s *Service) UpdateLead(ctx context.Context, actor scope.Actor, id uint, req LeadRequest) (*models.Lead, error) {
	db := s.db.WithContext(ctx)
	lead, err := s.findLead(db, scope.LeadOwnership, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyLead(lead, req); err != nil {
		return nil, err
	}

	if err := db.Omit(clause.Associations).Save(lead).Error; err != nil {
		return nil, database.Translate(err, resourceLead)
	}
	return lead, nil
}

// DeleteLead removes a lead and its activities. Non-admins may only delete
// leads assigned to them.
func (s *Service) DeleteLead(ctx context.Context, actor scope.Actor, id uint) error {
	res := scope.LeadOwnership.Apply(s.db.WithContext(ctx), actor).
		Where("leads.id = ?", id).
		Delete(&models.Lead{})
	if res.Error != nil {
		return database.Translate(res.Error, resourceLead)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceLead)
	}
	return nil
}

// LeadActivities lists the activities logged against a visible lead,
// newest first.
func (s *Service) LeadActivities(ctx context.Context, actor scope.Actor, id uint) ([]models.Activity, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findLead(db, scope.LeadOwnership, actor, id); err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0)
	if err := db.Where("lead_id = ?", id).Order("date DESC").Find(&activities).Error; err != nil {
		return nil, database.Translate(err, resourceActivity)
	}
	return activities, nil
}

func (s *Service) applyLead(lead *models.Lead, req LeadRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	phone, err := s.phones.Normalize("phone", req.Phone)
	if err != nil {
		return err
	}

	lead.Name = req.Name
	lead.Company = req.Company
	lead.Email = req.Email
	lead.Phone = phone
	lead.Source = req.Source
	lead.AssignedToID = req.AssignedTo
	lead.AssignedTo = nil
	lead.Notes = req.Notes
	if req.Status != "" {
		lead.Status = req.Status
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	stampQualified(lead, s.now())
	return nil
}

func stampQualified(lead *models.Lead, now time.Time) {
	if lead.Status == models.LeadStatusQualified && lead.QualifiedAt == nil {
		lead.QualifiedAt = &now
	}
}
