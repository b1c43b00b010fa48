// Package lifecycle is the use-case layer for parties. Every command runs in one
// transaction that locks the party row first, checks the party state, then the
// actor's authority, and only then mutates recruitments, applications or members.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/authority"
	"github.com/angelmondragon/partyhub-backend/internal/memberships"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ImageReleaser deletes a stored party image once nothing references it.
type ImageReleaser interface {
	Release(ctx context.Context, ref string) error
}

// Recorder observes command outcomes.
type Recorder interface {
	ObserveCommand(command string, err error, elapsed time.Duration)
	IncSeatsFilled()
}

// Service is the party lifecycle engine.
type Service interface {
	CreateParty(ctx context.Context, input CreatePartyInput) (*parties.PartyDTO, error)
	UpdateParty(ctx context.Context, input UpdatePartyInput) (*parties.PartyDTO, error)
	DeletePartyImage(ctx context.Context, input PartyCommand) (*parties.PartyDTO, error)
	EndParty(ctx context.Context, input PartyCommand) (*parties.PartyDTO, error)
	DeleteParty(ctx context.Context, input PartyCommand) error
	GetParty(ctx context.Context, partyID int64) (*parties.PartyDTO, error)
	ListParties(ctx context.Context, query parties.ListQuery) (*pagination.Page[parties.PartyDTO], error)
	ListPartyTypes(ctx context.Context) ([]parties.PartyTypeDTO, error)

	CreateRecruitment(ctx context.Context, input CreateRecruitmentInput) (*recruitments.RecruitmentDTO, error)
	CreateRecruitments(ctx context.Context, input CreateRecruitmentsInput) ([]recruitments.RecruitmentDTO, error)
	UpdateRecruitment(ctx context.Context, input UpdateRecruitmentInput) (*recruitments.RecruitmentDTO, error)
	DeleteRecruitment(ctx context.Context, input RecruitmentCommand) error
	BatchDeleteRecruitments(ctx context.Context, input BatchDeleteRecruitmentsInput) error
	GetRecruitment(ctx context.Context, partyID, recruitmentID int64) (*recruitments.RecruitmentDTO, error)
	FindRecruitment(ctx context.Context, recruitmentID int64) (*recruitments.RecruitmentDTO, error)
	ListRecruitments(ctx context.Context, partyID int64, query recruitments.ListQuery) ([]recruitments.RecruitmentDTO, error)

	SubmitApplication(ctx context.Context, input SubmitApplicationInput) (*applications.ApplicationDTO, error)
	ApproveApplication(ctx context.Context, input ApplicationDecisionInput) (*ApprovalResult, error)
	RejectApplication(ctx context.Context, input ApplicationDecisionInput) (*applications.ApplicationDTO, error)
	ListApplications(ctx context.Context, input ListApplicationsInput) (*pagination.Page[applications.ApplicationDTO], error)
	GetMyApplication(ctx context.Context, input RecruitmentCommand) (*applications.ApplicationDTO, error)

	RemoveMember(ctx context.Context, input RemoveMemberInput) error
	BatchRemoveMembers(ctx context.Context, input BatchRemoveMembersInput) error
	DelegateMaster(ctx context.Context, input DelegateMasterInput) error
	ChangeMemberAuthority(ctx context.Context, input ChangeAuthorityInput) error
	LeaveParty(ctx context.Context, input PartyCommand) error
	ListMembers(ctx context.Context, partyID int64, query memberships.ListQuery) ([]memberships.MemberDTO, error)
}

// ServiceParams lists the collaborators of the engine. Images, Metrics, Logger and Clock are optional.
type ServiceParams struct {
	DB           database
	Parties      *parties.Repository
	Recruitments *recruitments.Ledger
	Applications *applications.Repository
	Memberships  *memberships.Store
	Outbox       outboxPublisher
	Images       ImageReleaser
	Metrics      Recorder
	Logger       *logger.Logger
	Clock        func() time.Time
}

type service struct {
	db           database
	parties      *parties.Repository
	recruitments *recruitments.Ledger
	applications *applications.Repository
	memberships  *memberships.Store
	outbox       outboxPublisher
	images       ImageReleaser
	metrics      Recorder
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the lifecycle engine.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database required")
	}
	if params.Parties == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	if params.Recruitments == nil {
		return nil, fmt.Errorf("recruitment ledger required")
	}
	if params.Applications == nil {
		return nil, fmt.Errorf("applications repository required")
	}
	if params.Memberships == nil {
		return nil, fmt.Errorf("membership store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:           params.DB,
		parties:      params.Parties,
		recruitments: params.Recruitments,
		applications: params.Applications,
		memberships:  params.Memberships,
		outbox:       params.Outbox,
		images:       params.Images,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          clock,
	}, nil
}

// observe records the command outcome and returns err unchanged.
func (s *service) observe(command string, started time.Time, err error) error {
	if s.metrics != nil {
		s.metrics.ObserveCommand(command, err, time.Since(started))
	}
	return err
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// lockParty loads and locks the party row for the rest of the transaction.
func (s *service) lockParty(tx *gorm.DB, partyID int64) (*models.Party, error) {
	if partyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	party, err := s.parties.FindForUpdateTx(tx, partyID)
	if err != nil {
		return nil, mapPartyError(err)
	}
	return party, nil
}

// loadParty reads a party without locking it.
func (s *service) loadParty(ctx context.Context, partyID int64) (*models.Party, error) {
	if partyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	party, err := s.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, mapPartyError(err)
	}
	return party, nil
}

// authorize loads the actor's membership and checks it against the policy.
// Non-members are refused with FORBIDDEN.
func (s *service) authorize(ctx context.Context, tx *gorm.DB, partyID, actorID int64, action authority.Action) (*models.PartyUser, error) {
	if actorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	member, err := s.memberships.FindByUserTx(tx, partyID, actorID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is not a party member").
				WithDetails(map[string]any{"action": string(action)})
		}
		return nil, err
	}
	if err := authority.Require(member.Authority, action); err != nil {
		if s.logg != nil {
			denied := s.logg.WithActor(ctx, actorID, partyID, string(member.Authority))
			s.logg.Warn(s.logg.WithField(denied, "action", string(action)), "lifecycle.denied")
		}
		return nil, err
	}
	return member, nil
}

// releaseImage runs after commit. Failures are logged and never reach the caller.
func (s *service) releaseImage(ctx context.Context, partyID int64, ref string) {
	if s.images == nil || ref == "" {
		return
	}
	if err := s.images.Release(ctx, ref); err != nil && s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"party_id": partyID, "image": ref})
		s.logg.Error(ctx, "party.image_release_failed", err)
	}
}

func mapPartyError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
