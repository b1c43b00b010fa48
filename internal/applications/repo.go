package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// Repository persists applications and applies state transitions as conditional updates.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx stores a PENDING application. The partial unique index on open applications
// turns a racing duplicate into CONFLICT.
func (r *Repository) CreateTx(tx *gorm.DB, userID, partyID, recruitmentID int64, in SubmitInput) (*models.PartyApplication, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	recID := recruitmentID
	app := &models.PartyApplication{
		UserID:             userID,
		PartyID:            partyID,
		PartyRecruitmentID: &recID,
		Message:            strings.TrimSpace(in.Message),
		Status:             enums.ApplicationStatusPending,
	}
	if err := tx.Create(app).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "application already pending")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create application")
	}
	return app, nil
}

// HasOpenTx reports whether the user already has a non-terminal application for the recruitment.
func (r *Repository) HasOpenTx(tx *gorm.DB, userID, recruitmentID int64) (bool, error) {
	var count int64
	err := tx.Model(&models.PartyApplication{}).
		Where("user_id = ? AND party_recruitment_id = ? AND status IN ?", userID, recruitmentID, enums.OpenApplicationStatuses).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open application")
	}
	return count > 0, nil
}

// FindForUpdateTx loads and locks one application.
func (r *Repository) FindForUpdateTx(tx *gorm.DB, id int64) (*models.PartyApplication, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var app models.PartyApplication
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	return &app, nil
}

// TransitionTx moves app to `to` if it is still in the state it was loaded in.
// A concurrent decision makes the update miss and yields CONFLICT.
func (r *Repository) TransitionTx(tx *gorm.DB, app *models.PartyApplication, to enums.ApplicationStatus, decidedBy int64, now time.Time) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if err := Transition(app.Status, to); err != nil {
		return err
	}
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	if to.IsTerminal() {
		updates["decided_by"] = decidedBy
		updates["decided_at"] = now
	}
	res := tx.Model(&models.PartyApplication{}).
		Where("id = ? AND status = ?", app.ID, app.Status).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition application")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "application already decided")
	}
	app.Status = to
	if to.IsTerminal() {
		app.DecidedBy = &decidedBy
		app.DecidedAt = &now
	}
	return nil
}

// RejectOpenForRecruitmentTx rejects every still-open application of a closing recruitment
// and returns the rejected rows.
func (r *Repository) RejectOpenForRecruitmentTx(tx *gorm.DB, recruitmentID, decidedBy int64, now time.Time) ([]models.PartyApplication, error) {
	var open []models.PartyApplication
	if err := tx.Where("party_recruitment_id = ? AND status IN ?", recruitmentID, enums.OpenApplicationStatuses).
		Order("id ASC").
		Find(&open).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open applications")
	}
	if len(open) == 0 {
		return nil, nil
	}
	if err := tx.Model(&models.PartyApplication{}).
		Where("party_recruitment_id = ? AND status IN ?", recruitmentID, enums.OpenApplicationStatuses).
		Updates(map[string]any{
			"status":     enums.ApplicationStatusRejected,
			"decided_by": decidedBy,
			"decided_at": now,
			"updated_at": now,
		}).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject open applications")
	}
	for i := range open {
		open[i].Status = enums.ApplicationStatusRejected
	}
	return open, nil
}

// DetachRecruitmentTx clears the recruitment reference so the posting row can be deleted
// while decided applications stay on record under their party.
func (r *Repository) DetachRecruitmentTx(tx *gorm.DB, recruitmentIDs ...int64) error {
	if len(recruitmentIDs) == 0 {
		return nil
	}
	if err := tx.Model(&models.PartyApplication{}).
		Where("party_recruitment_id IN ?", recruitmentIDs).
		Update("party_recruitment_id", nil).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach applications")
	}
	return nil
}

// List pages through one recruitment's applications.
func (r *Repository) List(ctx context.Context, recruitmentID int64, q ListQuery) ([]ApplicationDTO, int64, error) {
	page := q.Page.Normalize()
	order := q.Order
	if order == "" {
		order = pagination.OrderAsc
	}

	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.PartyApplication{}).
			Where("party_recruitment_id = ?", recruitmentID)
		if q.Status != nil {
			db = db.Where("status = ?", *q.Status)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count applications")
	}

	var rows []models.PartyApplication
	err := base().
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: order == pagination.OrderDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: order == pagination.OrderDesc}).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications")
	}

	out := make([]ApplicationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, total, nil
}

// FindLatestForUser returns the user's most recent application to a recruitment.
func (r *Repository) FindLatestForUser(ctx context.Context, userID, recruitmentID int64) (*models.PartyApplication, error) {
	var app models.PartyApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND party_recruitment_id = ?", userID, recruitmentID).
		Order("id DESC").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	return &app, nil
}
