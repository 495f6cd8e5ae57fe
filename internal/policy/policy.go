// Package policy holds the role-to-capability table that gates every
// catalog and lifecycle operation. A Policy value is built once at
// startup and injected into the lifecycle engine and the HTTP layer, so
// authorization is an explicit dependency rather than a global lookup.
package policy

import (
	"sort"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/model"
)

// Capability names one guarded operation.
type Capability string

const (
	ManageBooks        Capability = "manage-books"
	DeleteBooks        Capability = "delete-books"
	BorrowBooks        Capability = "borrow-books"
	ReturnBooks        Capability = "return-books"
	ReserveBooks       Capability = "reserve-books"
	ManageReservations Capability = "manage-reservations"
	ManageFines        Capability = "manage-fines"
	PayFines           Capability = "pay-fines"
	ManageAuthors      Capability = "manage-authors"
	DeleteAuthors      Capability = "delete-authors"
	ViewUsers          Capability = "view-users"
	ManageUsers        Capability = "manage-users"
	DeleteUsers        Capability = "delete-users"
	ViewBorrowRecords  Capability = "view-borrow-records"
)

// Policy maps each capability to the set of roles allowed to use it.
type Policy struct {
	grants map[Capability]map[string]bool
}

// New builds a Policy from a capability -> roles table. Unknown
// capabilities are denied for every role.
func New(grants map[Capability][]string) *Policy {
	p := &Policy{grants: make(map[Capability]map[string]bool, len(grants))}
	for c, roles := range grants {
		set := make(map[string]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		p.grants[c] = set
	}
	return p
}

// Default returns the library's standard grants.
func Default() *Policy {
	staff := []string{model.RoleAdmin, model.RoleLibrarian}
	admin := []string{model.RoleAdmin}
	member := []string{model.RoleMember}
	return New(map[Capability][]string{
		ManageBooks:        staff,
		DeleteBooks:        admin,
		BorrowBooks:        member,
		ReturnBooks:        member,
		ReserveBooks:       member,
		ManageReservations: staff,
		ManageFines:        staff,
		PayFines:           member,
		ManageAuthors:      staff,
		DeleteAuthors:      admin,
		ViewUsers:          admin,
		ManageUsers:        admin,
		DeleteUsers:        admin,
		ViewBorrowRecords:  staff,
	})
}

// Authorize reports whether role may use capability c.
func (p *Policy) Authorize(role string, c Capability) bool {
	if p == nil {
		return false
	}
	return p.grants[c][role]
}

// Can is Authorize as an error: nil when allowed, apperr.ErrForbidden
// otherwise.
func (p *Policy) Can(role string, c Capability) error {
	if !p.Authorize(role, c) {
		return apperr.Forbidden("forbidden")
	}
	return nil
}

// Roles lists the roles granted c, sorted.
func (p *Policy) Roles(c Capability) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.grants[c]))
	for r := range p.grants[c] {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
