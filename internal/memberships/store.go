package memberships

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

// Store persists party memberships. (user_id, party_id) is unique at the storage layer.
type Store struct {
	db *gorm.DB
}

// NewStore binds the store to the provided GORM connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AdmitTx adds userID to the party. A second admission of the same user fails CONFLICT,
// including when two transactions race past any earlier membership check.
func (s *Store) AdmitTx(tx *gorm.DB, partyID, userID, positionID int64, authority enums.PartyAuthority) (*models.PartyUser, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if !authority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid party authority")
	}
	member := &models.PartyUser{
		UserID:     userID,
		PartyID:    partyID,
		PositionID: positionID,
		Authority:  authority,
	}
	if err := tx.Create(member).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user is already a party member")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admit member")
	}
	return member, nil
}

// FindByUserTx returns the membership of userID in the party, or NOT_FOUND.
func (s *Store) FindByUserTx(tx *gorm.DB, partyID, userID int64) (*models.PartyUser, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var member models.PartyUser
	err := tx.Where("party_id = ? AND user_id = ?", partyID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party member")
	}
	return &member, nil
}

// IsMemberTx reports whether userID belongs to the party.
func (s *Store) IsMemberTx(tx *gorm.DB, partyID, userID int64) (bool, error) {
	var count int64
	if err := tx.Model(&models.PartyUser{}).
		Where("party_id = ? AND user_id = ?", partyID, userID).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return count > 0, nil
}

// FindManyInPartyTx loads the given membership ids, locked, failing NOT_FOUND when any id
// is missing or belongs to another party.
func (s *Store) FindManyInPartyTx(tx *gorm.DB, partyID int64, ids []int64) ([]models.PartyUser, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party user ids are required")
	}
	var rows []models.PartyUser
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ? AND id IN ?", partyID, ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party members")
	}
	found := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party member not found").
			WithDetails(map[string]any{"missing_ids": missing})
	}
	return rows, nil
}

// EnsureRemovable refuses removal of the MASTER.
func EnsureRemovable(member models.PartyUser) error {
	if member.Authority == enums.PartyAuthorityMaster {
		return pkgerrors.New(pkgerrors.CodeForbidden, "party master cannot be removed")
	}
	return nil
}

// RemoveTx deletes memberships. The authority guard is repeated in SQL so a MASTER row
// is never deleted even if it was promoted after the caller's check.
func (s *Store) RemoveTx(tx *gorm.DB, members ...models.PartyUser) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if err := EnsureRemovable(m); err != nil {
			return err
		}
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	res := tx.Where("id IN ? AND authority <> ?", ids, enums.PartyAuthorityMaster).Delete(&models.PartyUser{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "remove party members")
	}
	if res.RowsAffected != int64(len(ids)) {
		return pkgerrors.New(pkgerrors.CodeConflict, "party members changed concurrently")
	}
	return nil
}

// ChangeAuthorityTx moves a membership from one authority to another with a conditional
// update; a concurrent change makes it miss with CONFLICT.
func (s *Store) ChangeAuthorityTx(tx *gorm.DB, memberID int64, from, to enums.PartyAuthority) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid party authority")
	}
	res := tx.Model(&models.PartyUser{}).
		Where("id = ? AND authority = ?", memberID, from).
		Updates(map[string]any{"authority": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "change authority")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "party member authority changed concurrently")
	}
	return nil
}

// DelegateMasterTx hands MASTER from current to next in one transaction: current becomes
// EDITOR first, then next becomes MASTER, so the party never holds two masters.
func (s *Store) DelegateMasterTx(tx *gorm.DB, current, next *models.PartyUser) error {
	if current.PartyID != next.PartyID {
		return pkgerrors.New(pkgerrors.CodeValidation, "members belong to different parties")
	}
	if current.ID == next.ID {
		return pkgerrors.New(pkgerrors.CodeConflict, "user already holds master authority")
	}
	if current.Authority != enums.PartyAuthorityMaster {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the party master can delegate")
	}
	if err := s.ChangeAuthorityTx(tx, current.ID, enums.PartyAuthorityMaster, enums.PartyAuthorityEditor); err != nil {
		return err
	}
	if err := s.ChangeAuthorityTx(tx, next.ID, next.Authority, enums.PartyAuthorityMaster); err != nil {
		return err
	}
	current.Authority = enums.PartyAuthorityEditor
	next.Authority = enums.PartyAuthorityMaster
	return nil
}

// CountMastersTx counts MASTER rows of a party.
func (s *Store) CountMastersTx(tx *gorm.DB, partyID int64) (int64, error) {
	var count int64
	if err := tx.Model(&models.PartyUser{}).
		Where("party_id = ? AND authority = ?", partyID, enums.PartyAuthorityMaster).
		Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count masters")
	}
	return count, nil
}

type memberRow struct {
	ID         int64
	UserID     int64
	PartyID    int64
	PositionID int64
	Main       string
	Sub        string
	Authority  enums.PartyAuthority
	CreatedAt  time.Time
}

// authorityRank orders MASTER, EDITOR, MEMBER for the authority sort.
const authorityRank = `CASE party_users.authority WHEN 'master' THEN 1 WHEN 'editor' THEN 2 ELSE 3 END`

// ListByParty returns the roster of a party joined with positions.
func (s *Store) ListByParty(ctx context.Context, partyID int64, q ListQuery) ([]MemberDTO, error) {
	db := s.db.WithContext(ctx).
		Table("party_users").
		Select("party_users.id, party_users.user_id, party_users.party_id, party_users.position_id, positions.main, positions.sub, party_users.authority, party_users.created_at").
		Joins("LEFT JOIN positions ON positions.id = party_users.position_id").
		Where("party_users.party_id = ?", partyID)
	if q.Main != "" {
		db = db.Where("positions.main = ?", q.Main)
	}

	desc := q.Order == pagination.OrderDesc
	if q.Sort == SortAuthority {
		// One expression: a later OrderByColumn would replace an Expression clause on merge.
		db = db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL: authorityRank + direction(desc) + ", party_users.id" + direction(desc),
		}})
	} else {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Table: "party_users", Name: "created_at"}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Table: "party_users", Name: "id"}, Desc: desc})
	}

	var rows []memberRow
	if err := db.Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list party members")
	}
	out := make([]MemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, MemberDTO(row))
	}
	return out, nil
}

func direction(desc bool) string {
	if desc {
		return " DESC"
	}
	return " ASC"
}
