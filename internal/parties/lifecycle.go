package parties

import (
	"time"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
)

// EnsureReadable rejects deleted parties with GONE.
func EnsureReadable(p *models.Party) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
	}
	if p.Status == enums.PartyStatusDeleted {
		return pkgerrors.New(pkgerrors.CodeGone, "party already deleted")
	}
	return nil
}

// EnsureActive guards every mutation of a party or its recruitments, applications and members.
func EnsureActive(p *models.Party) error {
	if err := EnsureReadable(p); err != nil {
		return err
	}
	if p.Status == enums.PartyStatusArchived {
		return pkgerrors.New(pkgerrors.CodeConflict, "party already ended")
	}
	return nil
}

// Archive moves an active party to archived.
func Archive(p *models.Party, now time.Time) error {
	if err := EnsureActive(p); err != nil {
		return err
	}
	p.Status = enums.PartyStatusArchived
	p.ArchivedAt = &now
	return nil
}

// MarkDeleted moves an active or archived party to deleted. The row is kept.
func MarkDeleted(p *models.Party, now time.Time) error {
	if err := EnsureReadable(p); err != nil {
		return err
	}
	p.Status = enums.PartyStatusDeleted
	p.DeletedAt = &now
	return nil
}
