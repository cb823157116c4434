package relations

import (
	"errors"

	"github.com/mechshop-dev/mechshop/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrMechanicNotFound = errors.New("mechanic not found")
	ErrPartNotFound     = errors.New("part not found")

	// ErrNotLinked is returned when a detach targets a mechanic or part that
	// is not currently on the ticket. Detach is deliberately not idempotent:
	// removing something that was never attached is a client error.
	ErrNotLinked = errors.New("not linked to this ticket")
)

// Engine applies membership changes to a ticket's mechanic and part sets.
// Every operation validates both ends of the relation and runs inside a
// single transaction, so a reader never observes a half-applied change. Bulk
// edits check the full target state (all ids exist, all removals currently
// linked) before writing anything.
type Engine struct {
	conn *gorm.DB
}

func NewEngine(conn *gorm.DB) *Engine {
	return &Engine{conn: conn}
}

// AssignMechanic links a mechanic to a ticket. Assigning an already-linked
// mechanic is a no-op success; the returned flag reports it.
func (e *Engine) AssignMechanic(ticketID, mechanicID uint) (*models.ServiceTicket, bool, error) {
	var ticket models.ServiceTicket
	var already bool

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		var mechanic models.Mechanic

		if err := tx.First(&mechanic, mechanicID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMechanicNotFound
			}
			return err
		}

		for _, m := range ticket.Mechanics {
			if m.ID == mechanic.ID {
				already = true
				return nil
			}
		}

		if err := tx.Model(&ticket).Association("Mechanics").Append(&mechanic); err != nil {
			return err
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, false, err
	}

	return &ticket, already, nil
}

// RemoveMechanic unlinks a mechanic from a ticket. The mechanic must be
// currently linked.
func (e *Engine) RemoveMechanic(ticketID, mechanicID uint) (*models.ServiceTicket, error) {
	var ticket models.ServiceTicket

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		var mechanic models.Mechanic

		if err := tx.First(&mechanic, mechanicID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMechanicNotFound
			}
			return err
		}

		linked := false
		for _, m := range ticket.Mechanics {
			if m.ID == mechanic.ID {
				linked = true
				break
			}
		}

		if !linked {
			return ErrNotLinked
		}

		if err := tx.Model(&ticket).Association("Mechanics").Delete(&mechanic); err != nil {
			return err
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

// EditMechanics applies a batch of additions and removals in one shot. The
// whole batch is validated against the current membership before any write:
// every id must resolve to an existing mechanic and every removal must be
// currently linked, otherwise nothing changes. Removals apply before
// additions, so an id in both lists ends up linked. Additions already present
// are skipped.
func (e *Engine) EditMechanics(ticketID uint, addIDs, removeIDs []uint) (*models.ServiceTicket, error) {
	var ticket models.ServiceTicket

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		adds, err := mechanicsByID(tx, addIDs)
		if err != nil {
			return err
		}

		removes, err := mechanicsByID(tx, removeIDs)
		if err != nil {
			return err
		}

		current := make(map[uint]bool, len(ticket.Mechanics))
		for _, m := range ticket.Mechanics {
			current[m.ID] = true
		}

		for _, m := range removes {
			if !current[m.ID] {
				return ErrNotLinked
			}
		}

		// All checks passed; from here on the batch cannot fail validation.
		for _, m := range removes {
			if err := tx.Model(&ticket).Association("Mechanics").Delete(&m); err != nil {
				return err
			}
			current[m.ID] = false
		}

		for _, m := range adds {
			if current[m.ID] {
				continue
			}
			if err := tx.Model(&ticket).Association("Mechanics").Append(&m); err != nil {
				return err
			}
			current[m.ID] = true
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

// AddPart links an inventory part to a ticket, idempotently.
func (e *Engine) AddPart(ticketID, partID uint) (*models.ServiceTicket, bool, error) {
	var ticket models.ServiceTicket
	var already bool

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		var part models.Part

		if err := tx.First(&part, partID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPartNotFound
			}
			return err
		}

		for _, p := range ticket.Parts {
			if p.ID == part.ID {
				already = true
				return nil
			}
		}

		if err := tx.Model(&ticket).Association("Parts").Append(&part); err != nil {
			return err
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, false, err
	}

	return &ticket, already, nil
}

// RemovePart unlinks a part from a ticket. The part must be currently linked.
func (e *Engine) RemovePart(ticketID, partID uint) (*models.ServiceTicket, error) {
	var ticket models.ServiceTicket

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		var part models.Part

		if err := tx.First(&part, partID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPartNotFound
			}
			return err
		}

		linked := false
		for _, p := range ticket.Parts {
			if p.ID == part.ID {
				linked = true
				break
			}
		}

		if !linked {
			return ErrNotLinked
		}

		if err := tx.Model(&ticket).Association("Parts").Delete(&part); err != nil {
			return err
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

// EditParts is the part-relation counterpart of EditMechanics, with the same
// validate-everything-then-write contract.
func (e *Engine) EditParts(ticketID uint, addIDs, removeIDs []uint) (*models.ServiceTicket, error) {
	var ticket models.ServiceTicket

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if err := loadTicket(tx, &ticket, ticketID); err != nil {
			return err
		}

		adds, err := partsByID(tx, addIDs)
		if err != nil {
			return err
		}

		removes, err := partsByID(tx, removeIDs)
		if err != nil {
			return err
		}

		current := make(map[uint]bool, len(ticket.Parts))
		for _, p := range ticket.Parts {
			current[p.ID] = true
		}

		for _, p := range removes {
			if !current[p.ID] {
				return ErrNotLinked
			}
		}

		for _, p := range removes {
			if err := tx.Model(&ticket).Association("Parts").Delete(&p); err != nil {
				return err
			}
			current[p.ID] = false
		}

		for _, p := range adds {
			if current[p.ID] {
				continue
			}
			if err := tx.Model(&ticket).Association("Parts").Append(&p); err != nil {
				return err
			}
			current[p.ID] = true
		}

		return loadTicket(tx, &ticket, ticketID)
	})

	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

func loadTicket(tx *gorm.DB, ticket *models.ServiceTicket, ticketID uint) error {
	err := tx.Preload("Mechanics").Preload("Parts").First(ticket, ticketID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTicketNotFound
	}

	return err
}

// mechanicsByID resolves a list of ids, failing if any id is unknown.
// Duplicate ids in the input are collapsed.
func mechanicsByID(tx *gorm.DB, ids []uint) ([]models.Mechanic, error) {
	unique := dedupe(ids)

	if len(unique) == 0 {
		return nil, nil
	}

	var mechanics []models.Mechanic

	if err := tx.Find(&mechanics, unique).Error; err != nil {
		return nil, err
	}

	if len(mechanics) != len(unique) {
		return nil, ErrMechanicNotFound
	}

	return mechanics, nil
}

func partsByID(tx *gorm.DB, ids []uint) ([]models.Part, error) {
	unique := dedupe(ids)

	if len(unique) == 0 {
		return nil, nil
	}

	var parts []models.Part

	if err := tx.Find(&parts, unique).Error; err != nil {
		return nil, err
	}

	if len(parts) != len(unique) {
		return nil, ErrPartNotFound
	}

	return parts, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	var unique []uint

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	return unique
}
