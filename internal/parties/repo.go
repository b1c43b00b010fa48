package parties

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// Repository handles party persistence and the reference catalogues parties point at.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to party operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx persists a new party row.
func (r *Repository) CreateTx(tx *gorm.DB, party *models.Party) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if party == nil {
		return fmt.Errorf("party is required")
	}
	return tx.Create(party).Error
}

// FindForUpdateTx loads a party and locks its row until the transaction ends.
// Every mutating command goes through this lock, which serializes commands per party.
func (r *Repository) FindForUpdateTx(tx *gorm.DB, id int64) (*models.Party, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var party models.Party
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

// SaveTx writes the mutable party columns.
func (r *Repository) SaveTx(tx *gorm.DB, party *models.Party) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if party == nil {
		return fmt.Errorf("party is required")
	}
	party.UpdatedAt = time.Now().UTC()
	return tx.Model(&models.Party{}).
		Where("id = ?", party.ID).
		Updates(map[string]any{
			"party_type_id": party.PartyTypeID,
			"title":         party.Title,
			"content":       party.Content,
			"image":         party.Image,
			"status":        party.Status,
			"archived_at":   party.ArchivedAt,
			"deleted_at":    party.DeletedAt,
			"updated_at":    party.UpdatedAt,
		}).Error
}

// TypeExistsTx reports whether the party type id is in the catalogue.
func (r *Repository) TypeExistsTx(tx *gorm.DB, id int64) (bool, error) {
	var count int64
	if err := tx.Model(&models.PartyType{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PositionExistsTx reports whether the position id is in the catalogue.
func (r *Repository) PositionExistsTx(tx *gorm.DB, id int64) (bool, error) {
	var count int64
	if err := tx.Model(&models.Position{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByID loads a party with its type.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Party, error) {
	var party models.Party
	if err := r.db.WithContext(ctx).
		Preload("PartyType").
		Where("id = ?", id).
		First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

type partyRow struct {
	ID               int64
	PartyTypeID      int64
	TypeDescription  string
	Title            string
	Content          string
	Image            *string
	Status           enums.PartyStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ArchivedAt       *time.Time
	RecruitmentCount int64
	MemberCount      int64
}

func (row partyRow) toDTO() PartyDTO {
	return PartyDTO{
		ID:               row.ID,
		TypeID:           row.PartyTypeID,
		TypeDescription:  row.TypeDescription,
		Title:            row.Title,
		Content:          row.Content,
		Image:            row.Image,
		Status:           row.Status,
		RecruitmentCount: row.RecruitmentCount,
		MemberCount:      row.MemberCount,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		ArchivedAt:       row.ArchivedAt,
	}
}

const partySelect = `parties.id, parties.party_type_id, party_types.description AS type_description,
parties.title, parties.content, parties.image, parties.status,
parties.created_at, parties.updated_at, parties.archived_at,
(SELECT COUNT(*) FROM party_recruitments WHERE party_recruitments.party_id = parties.id) AS recruitment_count,
(SELECT COUNT(*) FROM party_users WHERE party_users.party_id = parties.id) AS member_count`

func (r *Repository) partyQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("parties").
		Select(partySelect).
		Joins("LEFT JOIN party_types ON party_types.id = parties.party_type_id")
}

// Detail returns one party with its counters.
func (r *Repository) Detail(ctx context.Context, id int64) (*PartyDTO, error) {
	var rows []partyRow
	if err := r.partyQuery(ctx).Where("parties.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	dto := rows[0].toDTO()
	return &dto, nil
}

// List returns one page of parties and the total matching count.
// Deleted parties are only listed when explicitly requested by status.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]PartyDTO, int64, error) {
	filtered := func() *gorm.DB {
		db := r.db.WithContext(ctx).Table("parties")
		if q.Status != nil {
			db = db.Where("parties.status = ?", *q.Status)
		} else {
			db = db.Where("parties.status <> ?", enums.PartyStatusDeleted)
		}
		if len(q.TypeIDs) > 0 {
			db = db.Where("parties.party_type_id IN ?", q.TypeIDs)
		}
		if q.Title != "" {
			db = db.Where("LOWER(parties.title) LIKE ?", "%"+strings.ToLower(q.Title)+"%")
		}
		return db
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []partyRow
	err := filtered().
		Select(partySelect).
		Joins("LEFT JOIN party_types ON party_types.id = parties.party_type_id").
		Order(clause.OrderByColumn{Column: clause.Column{Table: "parties", Name: q.Sort}, Desc: q.Order == pagination.OrderDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "parties", Name: "id"}, Desc: q.Order == pagination.OrderDesc}).
		Limit(q.Page.Limit).
		Offset(q.Page.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]PartyDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, total, nil
}

// ListTypes returns the party type catalogue ordered by id.
func (r *Repository) ListTypes(ctx context.Context) ([]PartyTypeDTO, error) {
	var types []models.PartyType
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	out := make([]PartyTypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, PartyTypeDTO{ID: t.ID, Description: t.Description})
	}
	return out, nil
}
