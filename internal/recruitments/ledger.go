package recruitments

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// Ledger owns posting rows and their capacity counters.
type Ledger struct {
	db *gorm.DB
}

// NewLedger binds a GORM DB to recruitment operations.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// OpenTx creates a posting with RecruitedCount 0.
func (l *Ledger) OpenTx(tx *gorm.DB, partyID int64, in OpenInput) (*models.PartyRecruitment, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rec := &models.PartyRecruitment{
		PartyID:         partyID,
		PositionID:      in.PositionID,
		Content:         strings.TrimSpace(in.Content),
		RecruitingCount: in.RecruitingCount,
		RecruitedCount:  0,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open recruitment")
	}
	return rec, nil
}

// FindInPartyTx loads a posting and checks it belongs to partyID. When lock is set the row
// stays locked until the transaction ends.
func (l *Ledger) FindInPartyTx(tx *gorm.DB, partyID, id int64, lock bool) (*models.PartyRecruitment, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rec models.PartyRecruitment
	if err := q.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recruitment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recruitment")
	}
	if rec.PartyID != partyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recruitment not found")
	}
	return &rec, nil
}

// FindManyInPartyTx loads every id or fails NOT_FOUND listing the ids that are missing or foreign.
func (l *Ledger) FindManyInPartyTx(tx *gorm.DB, partyID int64, ids []int64) ([]models.PartyRecruitment, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recruitment ids are required")
	}
	var rows []models.PartyRecruitment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ? AND id IN ?", partyID, ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recruitments")
	}
	if missing := missingIDs(ids, rows); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recruitment not found").
			WithDetails(map[string]any{"missing_ids": missing})
	}
	return rows, nil
}

// ListByPartyTx returns every open posting of a party, locked.
func (l *Ledger) ListByPartyTx(tx *gorm.DB, partyID int64) ([]models.PartyRecruitment, error) {
	var rows []models.PartyRecruitment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ?", partyID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party recruitments")
	}
	return rows, nil
}

// UpdateTx applies a partial update. The new capacity must stay above the filled count.
func (l *Ledger) UpdateTx(tx *gorm.DB, rec *models.PartyRecruitment, in UpdateInput) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if err := in.Validate(); err != nil {
		return err
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.PositionID != nil {
		rec.PositionID = *in.PositionID
		updates["position_id"] = rec.PositionID
	}
	if in.Content != nil {
		rec.Content = strings.TrimSpace(*in.Content)
		updates["content"] = rec.Content
	}
	if in.RecruitingCount != nil {
		if *in.RecruitingCount <= rec.RecruitedCount {
			return pkgerrors.New(pkgerrors.CodeConflict, "recruiting count must exceed recruited count").
				WithDetails(map[string]any{"recruited_count": rec.RecruitedCount})
		}
		rec.RecruitingCount = *in.RecruitingCount
		updates["recruiting_count"] = rec.RecruitingCount
	}
	// The recruited_count guard makes a concurrent fill between load and write lose cleanly.
	res := tx.Model(&models.PartyRecruitment{}).
		Where("id = ? AND recruited_count < ?", rec.ID, rec.RecruitingCount).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update recruitment")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "recruitment changed concurrently")
	}
	return nil
}

// IncrementFilledTx takes one seat. It is a single conditional UPDATE, so two callers
// can never both take the last seat. closed reports whether the posting is now full
// and must be closed by the caller in the same transaction.
func (l *Ledger) IncrementFilledTx(tx *gorm.DB, id int64) (rec *models.PartyRecruitment, closed bool, err error) {
	if tx == nil {
		return nil, false, gorm.ErrInvalidTransaction
	}
	res := tx.Model(&models.PartyRecruitment{}).
		Where("id = ? AND recruited_count < recruiting_count", id).
		Updates(map[string]any{
			"recruited_count": gorm.Expr("recruited_count + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment recruited count")
	}
	if res.RowsAffected == 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "recruitment already full")
	}

	var current models.PartyRecruitment
	if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload recruitment")
	}
	return &current, current.RecruitedCount >= current.RecruitingCount, nil
}

// DeleteTx removes posting rows. Callers detach applications first.
func (l *Ledger) DeleteTx(tx *gorm.DB, ids ...int64) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.PartyRecruitment{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete recruitments")
	}
	return nil
}

type recruitmentRow struct {
	ID               int64
	PartyID          int64
	PartyTitle       string
	PartyImage       *string
	PositionID       int64
	Main             string
	Sub              string
	Content          string
	RecruitingCount  int
	RecruitedCount   int
	ApplicationCount int64
	CreatedAt        time.Time
}

func (row recruitmentRow) toDTO() RecruitmentDTO {
	return RecruitmentDTO{
		ID:               row.ID,
		PartyID:          row.PartyID,
		PartyTitle:       row.PartyTitle,
		PartyImage:       row.PartyImage,
		PositionID:       row.PositionID,
		Main:             row.Main,
		Sub:              row.Sub,
		Content:          row.Content,
		RecruitingCount:  row.RecruitingCount,
		RecruitedCount:   row.RecruitedCount,
		ApplicationCount: row.ApplicationCount,
		CreatedAt:        row.CreatedAt,
	}
}

const recruitmentSelect = `party_recruitments.id, party_recruitments.party_id,
parties.title AS party_title, parties.image AS party_image,
party_recruitments.position_id, positions.main, positions.sub,
party_recruitments.content, party_recruitments.recruiting_count, party_recruitments.recruited_count,
(SELECT COUNT(*) FROM party_applications WHERE party_applications.party_recruitment_id = party_recruitments.id) AS application_count,
party_recruitments.created_at`

func (l *Ledger) recruitmentQuery(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).
		Table("party_recruitments").
		Select(recruitmentSelect).
		Joins("JOIN parties ON parties.id = party_recruitments.party_id").
		Joins("LEFT JOIN positions ON positions.id = party_recruitments.position_id")
}

// Detail returns one posting with party and position data.
func (l *Ledger) Detail(ctx context.Context, partyID, id int64) (*RecruitmentDTO, error) {
	var rows []recruitmentRow
	err := l.recruitmentQuery(ctx).
		Where("party_recruitments.id = ? AND party_recruitments.party_id = ?", id, partyID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recruitment")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recruitment not found")
	}
	dto := rows[0].toDTO()
	return &dto, nil
}

// PartyOf returns the party that owns an open posting.
func (l *Ledger) PartyOf(ctx context.Context, id int64) (int64, error) {
	var partyIDs []int64
	err := l.db.WithContext(ctx).
		Model(&models.PartyRecruitment{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("party_id", &partyIDs).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recruitment")
	}
	if len(partyIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "recruitment not found")
	}
	return partyIDs[0], nil
}

// ListByParty returns a party's open postings, optionally filtered by position main category.
func (l *Ledger) ListByParty(ctx context.Context, partyID int64, q ListQuery) ([]RecruitmentDTO, error) {
	order := q.Order
	if order == "" {
		order = pagination.OrderDesc
	}
	db := l.recruitmentQuery(ctx).Where("party_recruitments.party_id = ?", partyID)
	if main := strings.TrimSpace(q.Main); main != "" {
		db = db.Where("positions.main = ?", main)
	}
	var rows []recruitmentRow
	err := db.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "party_recruitments", Name: "created_at"}, Desc: order == pagination.OrderDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "party_recruitments", Name: "id"}, Desc: order == pagination.OrderDesc}).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recruitments")
	}
	out := make([]RecruitmentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

func missingIDs(want []int64, rows []models.PartyRecruitment) []int64 {
	found := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
