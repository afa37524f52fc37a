// Package scope decides which records an actor may see. The same policy is
// rendered as a gorm condition for listings and as an ent predicate for
// reports, so both always agree.
package scope

import (
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"gorm.io/gorm"
)

// Actor is the authenticated user a request runs for.
type Actor struct {
	UserID uint
	Role   models.Role
}

// Elevated reports whether the actor sees every record.
func (a Actor) Elevated() bool {
	return a.Role == models.RoleAdmin
}

// Membership grants visibility through a link table.
type Membership struct {
	Table    string // link table, e.g. project_members
	Key      string // column referencing the scoped row
	UserCol  string // column referencing the user
	RefField string // column of the scoped table matched by Key, usually id
}

// Policy describes the owner column of a resource.
type Policy struct {
	Table string
	Owner string
	// Unowned also grants rows where the owner column is NULL.
	Unowned bool
	// Members also grants rows linked to the actor through a table.
	Members *Membership
}

// Built-in policies.
var (
	Leads = Policy{Table: "leads", Owner: "assigned_to_id", Unowned: true}
	// LeadOwnership is the stricter rule for opening, changing and deleting a lead.
	LeadOwnership = Policy{Table: "leads", Owner: "assigned_to_id"}
	Opportunities = Policy{Table: "opportunities", Owner: "assigned_to_id"}
	Activities    = Policy{Table: "activities", Owner: "created_by_id"}
	Sales         = Policy{Table: "sales", Owner: "sales_person_id"}
	Purchases     = Policy{Table: "purchases", Owner: "created_by_id"}
	Projects      = Policy{
		Table: "projects",
		Owner: "manager_id",
		Members: &Membership{
			Table:    "project_members",
			Key:      "project_id",
			UserCol:  "user_id",
			RefField: "id",
		},
	}
)

// Apply restricts a gorm query to the rows visible to actor.
func (p Policy) Apply(db *gorm.DB, actor Actor) *gorm.DB {
	if actor.Elevated() {
		return db
	}

	owner := fmt.Sprintf("%s.%s", p.Table, p.Owner)
	switch {
	case p.Members != nil:
		m := p.Members
		return db.Where(
			fmt.Sprintf("%s = ? OR %s.%s IN (SELECT %s FROM %s WHERE %s = ?)",
				owner, p.Table, m.RefField, m.Key, m.Table, m.UserCol),
			actor.UserID, actor.UserID,
		)
	case p.Unowned:
		return db.Where(fmt.Sprintf("(%s = ? OR %s IS NULL)", owner, owner), actor.UserID)
	default:
		return db.Where(fmt.Sprintf("%s = ?", owner), actor.UserID)
	}
}

// Predicate returns the same restriction for a report query over the
// policy table, or nil when the actor sees everything.
func (p Policy) Predicate(actor Actor) *entsql.Predicate {
	if actor.Elevated() {
		return nil
	}

	own := entsql.EQ(p.Owner, actor.UserID)
	switch {
	case p.Members != nil:
		m := p.Members
		linked := entsql.Select(m.Key).
			From(entsql.Table(m.Table)).
			Where(entsql.EQ(m.UserCol, actor.UserID))
		return entsql.Or(own, entsql.In(m.RefField, linked))
	case p.Unowned:
		return entsql.Or(own, entsql.IsNull(p.Owner))
	default:
		return own
	}
}

// Allows reports whether a single loaded record is visible to actor.
// owner is the record's owner id, nil when unowned; members lists the
// ids linked through Members.
func (p Policy) Allows(actor Actor, owner *uint, members ...uint) bool {
	if actor.Elevated() {
		return true
	}
	if owner == nil {
		return p.Unowned
	}
	if *owner == actor.UserID {
		return true
	}
	for _, id := range members {
		if id == actor.UserID {
			return true
		}
	}
	return false
}
