package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusWon         LeadStatus = "won"
	LeadStatusLost        LeadStatus = "lost"
)

// LeadStatuses lists every lead status in pipeline order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusProposal,
	LeadStatusNegotiation, LeadStatusWon, LeadStatusLost,
}

// LeadSource is where a lead came from.
type LeadSource string

const (
	LeadSourceWebsite     LeadSource = "website"
	LeadSourceReferral    LeadSource = "referral"
	LeadSourceSocialMedia LeadSource = "social_media"
	LeadSourceDirect      LeadSource = "direct"
	LeadSourceOther       LeadSource = "other"
)

// LeadSources lists every lead source.
var LeadSources = []LeadSource{
	LeadSourceWebsite, LeadSourceReferral, LeadSourceSocialMedia, LeadSourceDirect, LeadSourceOther,
}

// Lead is a prospective customer.
type Lead struct {
	Base
	Name         string     `gorm:"size:200;not null" json:"name"`
	Company      string     `gorm:"size:200" json:"company,omitempty"`
	Email        string     `gorm:"size:254;not null" json:"email"`
	Phone        string     `gorm:"size:20;not null" json:"phone"`
	Source       LeadSource `gorm:"size:20;not null;index" json:"source"`
	Status       LeadStatus `gorm:"size:20;not null;default:new;index" json:"status"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to"`
	AssignedTo   *User      `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to_detail,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	QualifiedAt  *time.Time `json:"qualified_at,omitempty"`
	ConvertedAt  *time.Time `json:"converted_at,omitempty"`
}

// OpportunityStatus is the sales stage of an opportunity.
type OpportunityStatus string

const (
	OpportunityStatusIdentified  OpportunityStatus = "identified"
	OpportunityStatusQualified   OpportunityStatus = "qualified"
	OpportunityStatusProposal    OpportunityStatus = "proposal"
	OpportunityStatusNegotiation OpportunityStatus = "negotiation"
	OpportunityStatusClosedWon   OpportunityStatus = "closed_won"
	OpportunityStatusClosedLost  OpportunityStatus = "closed_lost"
)

// OpportunityStatuses lists every opportunity status in pipeline order.
var OpportunityStatuses = []OpportunityStatus{
	OpportunityStatusIdentified, OpportunityStatusQualified, OpportunityStatusProposal,
	OpportunityStatusNegotiation, OpportunityStatusClosedWon, OpportunityStatusClosedLost,
}

// IsClosed reports whether the stage ends the opportunity.
func (s OpportunityStatus) IsClosed() bool {
	return s == OpportunityStatusClosedWon || s == OpportunityStatusClosedLost
}

// DefaultProbability is the win probability given to new opportunities.
const DefaultProbability = 50

// Opportunity is a potential deal with an existing customer.
type Opportunity struct {
	Base
	CustomerID        uint              `gorm:"not null;index" json:"customer_id"`
	Customer          *Customer         `gorm:"constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Title             string            `gorm:"size:200;not null" json:"title"`
	Description       string            `gorm:"type:text" json:"description"`
	Value             decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"value"`
	Status            OpportunityStatus `gorm:"size:20;not null;default:identified;index" json:"status"`
	ExpectedCloseDate Date              `gorm:"not null" json:"expected_close_date"`
	ClosedAt          *time.Time        `json:"closed_at,omitempty"`
	AssignedToID      *uint             `gorm:"index" json:"assigned_to"`
	AssignedTo        *User             `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to_detail,omitempty"`
	Probability       int               `gorm:"not null" json:"probability"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`
}

// ActivityType is the kind of a logged interaction.
type ActivityType string

const (
	ActivityTypeCall    ActivityType = "call"
	ActivityTypeMeeting ActivityType = "meeting"
	ActivityTypeEmail   ActivityType = "email"
	ActivityTypeNote    ActivityType = "note"
	ActivityTypeTask    ActivityType = "task"
)

// ActivityTypes lists every activity type.
var ActivityTypes = []ActivityType{
	ActivityTypeCall, ActivityTypeMeeting, ActivityTypeEmail, ActivityTypeNote, ActivityTypeTask,
}

// Activity is an interaction logged against a lead or an opportunity.
type Activity struct {
	Base
	LeadID        *uint        `gorm:"index" json:"lead_id,omitempty"`
	Lead          *Lead        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OpportunityID *uint        `gorm:"index" json:"opportunity_id,omitempty"`
	Opportunity   *Opportunity `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type          ActivityType `gorm:"size:20;not null;index" json:"type"`
	Subject       string       `gorm:"size:200;not null" json:"subject"`
	Description   string       `gorm:"type:text" json:"description"`
	Date          time.Time    `gorm:"not null;index" json:"date"`
	CreatedByID   uint         `gorm:"not null;index" json:"created_by"`
	CreatedBy     *User        `gorm:"foreignKey:CreatedByID;constraint:OnDelete:RESTRICT" json:"created_by_detail,omitempty"`
}
