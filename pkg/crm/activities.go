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

const resourceActivity = "activity"

// ActivityRequest is the payload for logging or replacing an activity.
type ActivityRequest struct {
	LeadID        *uint               `json:"lead_id"`
	OpportunityID *uint               `json:"opportunity_id"`
	Type          models.ActivityType `json:"type" validate:"required,oneof=call meeting email note task"`
	Subject       string              `json:"subject" validate:"required,max=200"`
	Description   string              `json:"description"`
	Date          time.Time           `json:"date" validate:"required"`
}

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	Type          string
	LeadID        *uint
	OpportunityID *uint
}

var activityListing = listing.Spec{
	Search: []string{
		listing.Like("activities.subject"),
		listing.Like("activities.description"),
	},
	Orderings: map[string]string{
		"date":       "activities.date",
		"created_at": "activities.created_at",
	},
	Default: "-date",
}

// ListActivities returns one page of the activities created by actor, or
// all of them for admins.
func (s *Service) ListActivities(ctx context.Context, actor scope.Actor, filter ActivityFilter, p listing.Params) (models.ListResponse[models.Activity], error) {
	q := scope.Activities.Apply(s.db.WithContext(ctx).Model(&models.Activity{}), actor)
	if filter.Type != "" {
		q = q.Where("activities.type = ?", filter.Type)
	}
	if filter.LeadID != nil {
		q = q.Where("activities.lead_id = ?", *filter.LeadID)
	}
	if filter.OpportunityID != nil {
		q = q.Where("activities.opportunity_id = ?", *filter.OpportunityID)
	}
	return listing.Page[models.Activity](q, activityListing, p)
}

// GetActivity returns an activity visible to actor.
func (s *Service) GetActivity(ctx context.Context, actor scope.Actor, id uint) (*models.Activity, error) {
	return s.findActivity(s.db.WithContext(ctx).Preload("CreatedBy"), actor, id)
}

func (s *Service) findActivity(db *gorm.DB, actor scope.Actor, id uint) (*models.Activity, error) {
	var activity models.Activity
	err := scope.Activities.Apply(db.Model(&models.Activity{}), actor).
		Where("activities.id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, database.Translate(err, resourceActivity)
	}
	return &activity, nil
}

// CreateActivity logs an activity on behalf of actor.
func (s *Service) CreateActivity(ctx context.Context, actor scope.Actor, req ActivityRequest) (*models.Activity, error) {
	db := s.db.WithContext(ctx)
	activity := models.Activity{CreatedByID: actor.UserID}
	if err := s.applyActivity(db, actor, &activity, req); err != nil {
		return nil, err
	}

	if err := db.Omit(clause.Associations).Create(&activity).Error; err != nil {
		return nil, database.Translate(err, resourceActivity)
	}
	return &activity, nil
}

// UpdateActivity replaces the editable fields of an activity.
func (s *Service) UpdateActivity(ctx context.Context, actor scope.Actor, id uint, req ActivityRequest) (*models.Activity, error) {
	db := s.db.WithContext(ctx)
	activity, err := s.findActivity(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyActivity(db, actor, activity, req); err != nil {
		return nil, err
	}

	if err := db.Omit(clause.Associations).Save(activity).Error; err != nil {
		return nil, database.Translate(err, resourceActivity)
	}
	return activity, nil
}

// DeleteActivity removes an activity visible to actor.
func (s *Service) DeleteActivity(ctx context.Context, actor scope.Actor, id uint) error {
	res := scope.Activities.Apply(s.db.WithContext(ctx), actor).
		Where("activities.id = ?", id).
		Delete(&models.Activity{})
	if res.Error != nil {
		return database.Translate(res.Error, resourceActivity)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceActivity)
	}
	return nil
}

func (s *Service) applyActivity(db *gorm.DB, actor scope.Actor, activity *models.Activity, req ActivityRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.LeadID == nil && req.OpportunityID == nil {
		return domain.NewFieldError("lead_id", "an activity must reference a lead or an opportunity")
	}
	if req.LeadID != nil {
		if _, err := s.findLead(db, scope.Leads, actor, *req.LeadID); err != nil {
			return err
		}
	}
	if req.OpportunityID != nil {
		if _, err := s.findOpportunity(db, actor, *req.OpportunityID); err != nil {
			return err
		}
	}

	activity.LeadID = req.LeadID
	activity.OpportunityID = req.OpportunityID
	activity.Type = req.Type
	activity.Subject = req.Subject
	activity.Description = req.Description
	activity.Date = req.Date.UTC()
	activity.CreatedBy = nil
	return nil
}
