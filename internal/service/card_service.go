package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/cardcrypto"
	"github.com/spec-kit/bankcards-service/internal/config"
	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/events"
	"github.com/spec-kit/bankcards-service/internal/repository"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// CardInput carries the admin-supplied fields of a card.
type CardInput struct {
	Number     string
	OwnerID    string
	Expiration time.Time
	Balance    decimal.Decimal
}

// TransferInput describes a card-to-card transfer.
type TransferInput struct {
	FromCardID string
	ToCardID   string
	Amount     decimal.Decimal
}

// CardListFilter holds listing parameters. Page is zero-based.
// Status and Owner are names; empty means no filter.
type CardListFilter struct {
	Status string
	Owner  string
	Page   int
	Size   int
}

// CardView is the outward representation of a card. The PAN is always masked.
type CardView struct {
	ID            string
	MaskedNumber  string
	OwnerID       string
	OwnerUsername string
	Expiration    time.Time
	Status        domain.CardStatus
	Balance       decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CardPage is one page of a card listing.
type CardPage struct {
	Items []CardView
	Page  int
	Size  int
	Total int
}

// CardService owns the card lifecycle and fund transfers.
type CardService struct {
	store      repository.Store
	directory  *AccountDirectory
	validator  *CardValidator
	cipher     *cardcrypto.Cipher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.CardsConfig
	now        func() time.Time
}

// CardDependencies groups collaborators of CardService.
type CardDependencies struct {
	Store      repository.Store
	Directory  *AccountDirectory
	Validator  *CardValidator
	Cipher     *cardcrypto.Cipher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewCardService builds the service.
func NewCardService(cfg config.CardsConfig, deps CardDependencies) *CardService {
	s := &CardService{
		store:      deps.Store,
		directory:  deps.Directory,
		validator:  deps.Validator,
		cipher:     deps.Cipher,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        cfg,
		now:        deps.Now,
	}
	if s.validator == nil {
		s.validator = NewCardValidator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateCard encrypts the number and stores a card for an existing owner.
func (s *CardService) CreateCard(ctx context.Context, in CardInput, actor *domain.User) (*CardView, error) {
	if err := validateCardInput(in); err != nil {
		return nil, err
	}
	owner, err := s.directory.RequireByID(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(in.Number)
	if err != nil {
		return nil, err
	}

	card := &domain.Card{
		EncryptedNumber: encrypted,
		OwnerID:         owner.ID,
		Expiration:      in.Expiration,
		Status:          s.validator.DetermineInitialStatus(in.Expiration, s.now()),
		Balance:         in.Balance,
	}
	if err := s.store.Repositories().Cards.Create(ctx, card); err != nil {
		return nil, s.cardWriteError(err, card)
	}

	s.logger.Info("card created",
		zap.String("card_id", card.ID),
		zap.String("owner_id", owner.ID),
		zap.String("status", string(card.Status)))

	view := s.viewWithOwner(card, owner)
	s.publish(ctx, events.New(events.EventCardCreated, card.ID, events.ActorFrom(actor), s.now(), events.CardCreatedPayload{
		OwnerID:      owner.ID,
		Status:       card.Status,
		MaskedNumber: view.MaskedNumber,
	}))
	return view, nil
}

// GetCard returns a card the requester may read.
func (s *CardService) GetCard(ctx context.Context, id string, requester *domain.User) (*CardView, error) {
	card, err := s.requireCard(ctx, s.store.Repositories(), id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.CheckReadAccess(card, requester); err != nil {
		return nil, err
	}
	return s.view(ctx, card)
}

// ListCards pages through cards. Non-admins only ever see their own cards,
// whatever owner filter they pass.
func (s *CardService) ListCards(ctx context.Context, filter CardListFilter, requester *domain.User) (*CardPage, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	var repoFilter repository.CardFilter
	if filter.Status != "" {
		status, err := s.validator.RequireStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		repoFilter.Status = &status
	}

	switch {
	case !requester.IsAdmin():
		ownerID := requester.ID
		repoFilter.OwnerID = &ownerID
	case filter.Owner != "":
		owner, err := s.directory.RequireByUsername(ctx, filter.Owner)
		if err != nil {
			return nil, err
		}
		repoFilter.OwnerID = &owner.ID
	}

	page, size := s.pageBounds(filter.Page, filter.Size)
	repoFilter.Limit = size
	repoFilter.Offset = page * size

	cards, total, err := s.store.Repositories().Cards.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	items := make([]CardView, 0, len(cards))
	for i := range cards {
		view, err := s.view(ctx, &cards[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *view)
	}
	return &CardPage{Items: items, Page: page, Size: size, Total: total}, nil
}

// UpdateCard replaces number, owner, expiration and balance. A past
// expiration forces EXPIRED; otherwise the status is left as is.
func (s *CardService) UpdateCard(ctx context.Context, id string, in CardInput, actor *domain.User) (*CardView, error) {
	if err := validateCardInput(in); err != nil {
		return nil, err
	}
	owner, err := s.directory.RequireByID(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(in.Number)
	if err != nil {
		return nil, err
	}

	var oldStatus domain.CardStatus
	var updated *domain.Card
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		card, err := s.lockCard(ctx, repos, id)
		if err != nil {
			return err
		}
		oldStatus = card.Status

		card.EncryptedNumber = encrypted
		card.OwnerID = owner.ID
		card.Expiration = in.Expiration
		card.Balance = in.Balance
		if s.validator.IsExpired(in.Expiration, s.now()) {
			card.Status = domain.CardStatusExpired
		}
		if err := repos.Cards.Update(ctx, card); err != nil {
			return s.cardWriteError(err, card)
		}
		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("card updated", zap.String("card_id", id), zap.String("owner_id", owner.ID))
	s.publish(ctx, events.New(events.EventCardUpdated, id, events.ActorFrom(actor), s.now(), events.CardUpdatedPayload{
		OwnerID: owner.ID,
		Status:  updated.Status,
	}))
	if oldStatus != updated.Status {
		s.publishStatusChange(ctx, updated, oldStatus, events.ReasonExpired, actor)
	}
	return s.viewWithOwner(updated, owner), nil
}

// DeleteCard removes a card. Ledger entries referencing it are kept.
func (s *CardService) DeleteCard(ctx context.Context, id string, actor *domain.User) error {
	var ownerID string
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		card, err := s.lockCard(ctx, repos, id)
		if err != nil {
			return err
		}
		ownerID = card.OwnerID
		if err := repos.Cards.Delete(ctx, id); err != nil {
			return s.cardWriteError(err, card)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("card deleted", zap.String("card_id", id))
	s.publish(ctx, events.New(events.EventCardDeleted, id, events.ActorFrom(actor), s.now(), events.CardDeletedPayload{OwnerID: ownerID}))
	return nil
}

// Transfer moves amount between two cards of the requester. All checks,
// both balance writes and the ledger append happen in one transaction with
// both cards locked; any failure leaves balances and ledger untouched.
func (s *CardService) Transfer(ctx context.Context, in TransferInput, requester *domain.User) (*domain.Transfer, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if in.FromCardID == "" || in.ToCardID == "" {
		return nil, apperrors.NewValidationError("both card ids are required", nil)
	}
	if sameID(in.FromCardID, in.ToCardID) {
		return nil, apperrors.NewValidationError("source and destination cards must differ", map[string]any{"card_id": in.FromCardID})
	}
	if in.Amount.IsNegative() {
		return nil, apperrors.NewValidationError("amount must not be negative", map[string]any{"amount": in.Amount.String()})
	}
	if !fitsMoneyScale(in.Amount) {
		return nil, apperrors.NewValidationError("amount has more than 2 decimal places", map[string]any{"amount": in.Amount.String()})
	}

	var transfer *domain.Transfer
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		from, to, err := repos.Cards.LockPair(ctx, in.FromCardID, in.ToCardID)
		if err != nil {
			return fmt.Errorf("lock cards: %w", err)
		}
		if from == nil {
			return cardNotFound(in.FromCardID)
		}
		if to == nil {
			return cardNotFound(in.ToCardID)
		}

		if err := s.validator.CheckPairOwnership(from, to, requester); err != nil {
			return err
		}
		if err := s.validator.CheckBothActive(from, to); err != nil {
			return err
		}
		if err := s.validator.CheckSufficientFunds(from, in.Amount); err != nil {
			return err
		}

		from.Balance = from.Balance.Sub(in.Amount)
		to.Balance = to.Balance.Add(in.Amount)
		if err := repos.Cards.Update(ctx, from); err != nil {
			return s.cardWriteError(err, from)
		}
		if err := repos.Cards.Update(ctx, to); err != nil {
			return s.cardWriteError(err, to)
		}

		transfer = &domain.Transfer{FromCardID: from.ID, ToCardID: to.ID, Amount: in.Amount}
		if err := repos.Transfers.Append(ctx, transfer); err != nil {
			return fmt.Errorf("append transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Info("transfer rejected",
			zap.String("from_card_id", in.FromCardID),
			zap.String("to_card_id", in.ToCardID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("transfer completed",
		zap.String("transfer_id", transfer.ID),
		zap.String("from_card_id", transfer.FromCardID),
		zap.String("to_card_id", transfer.ToCardID),
		zap.String("amount", transfer.Amount.String()))
	s.publish(ctx, events.New(events.EventTransferCompleted, transfer.FromCardID, events.ActorFrom(requester), s.now(), events.TransferCompletedPayload{
		TransferID: transfer.ID,
		FromCardID: transfer.FromCardID,
		ToCardID:   transfer.ToCardID,
		Amount:     transfer.Amount.String(),
	}))
	return transfer, nil
}

// RequestBlock lets the owner block an ACTIVE card.
func (s *CardService) RequestBlock(ctx context.Context, id string, requester *domain.User) error {
	return s.changeStatus(ctx, id, domain.CardStatusBlocked, events.ReasonOwnerBlock, requester, func(card *domain.Card) error {
		if err := s.validator.CheckOwnership(card, requester); err != nil {
			return err
		}
		return s.validator.CheckActive(card)
	})
}

// AdminBlock blocks a card whatever its status.
func (s *CardService) AdminBlock(ctx context.Context, id string, actor *domain.User) error {
	return s.changeStatus(ctx, id, domain.CardStatusBlocked, events.ReasonAdminBlock, actor, nil)
}

// AdminActivate activates a card whatever its status.
func (s *CardService) AdminActivate(ctx context.Context, id string, actor *domain.User) error {
	return s.changeStatus(ctx, id, domain.CardStatusActive, events.ReasonAdminActivate, actor, nil)
}

// ExpireOverdueCards moves every ACTIVE card whose expiration is before now
// to EXPIRED and returns how many cards changed.
func (s *CardService) ExpireOverdueCards(ctx context.Context, now time.Time) (int, error) {
	var expired []domain.Card
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cards, err := repos.Cards.ListExpiredActive(ctx, now)
		if err != nil {
			return fmt.Errorf("list overdue cards: %w", err)
		}
		for i := range cards {
			cards[i].Status = domain.CardStatusExpired
			if err := repos.Cards.Update(ctx, &cards[i]); err != nil {
				return s.cardWriteError(err, &cards[i])
			}
		}
		expired = cards
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := range expired {
		s.publishStatusChange(ctx, &expired[i], domain.CardStatusActive, events.ReasonExpired, nil)
	}
	if len(expired) > 0 {
		s.logger.Info("expired overdue cards", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (s *CardService) changeStatus(
	ctx context.Context,
	id string,
	target domain.CardStatus,
	reason events.StatusChangeReason,
	actor *domain.User,
	check func(*domain.Card) error,
) error {
	status, err := s.validator.RequireStatus(string(target))
	if err != nil {
		return err
	}

	var (
		card      *domain.Card
		oldStatus domain.CardStatus
	)
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := s.lockCard(ctx, repos, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(c); err != nil {
				return err
			}
		}
		oldStatus = c.Status
		c.Status = status
		if err := repos.Cards.Update(ctx, c); err != nil {
			return s.cardWriteError(err, c)
		}
		card = c
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("card status changed",
		zap.String("card_id", id),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(status)),
		zap.String("reason", string(reason)))
	if oldStatus != status {
		s.publishStatusChange(ctx, card, oldStatus, reason, actor)
	}
	return nil
}

func (s *CardService) requireCard(ctx context.Context, repos repository.Repositories, id string) (*domain.Card, error) {
	card, err := repos.Cards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cardNotFound(id)
		}
		return nil, fmt.Errorf("load card %s: %w", id, err)
	}
	return card, nil
}

// lockCard loads a card inside a transaction and keeps its row locked so a
// concurrent transfer cannot commit between this read and the write back.
func (s *CardService) lockCard(ctx context.Context, repos repository.Repositories, id string) (*domain.Card, error) {
	card, err := repos.Cards.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cardNotFound(id)
		}
		return nil, fmt.Errorf("lock card %s: %w", id, err)
	}
	return card, nil
}

func (s *CardService) cardWriteError(err error, card *domain.Card) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return cardNotFound(card.ID)
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.NewNotFound("user", map[string]any{"id": card.OwnerID})
	}
	return fmt.Errorf("write card %s: %w", card.ID, err)
}

func (s *CardService) view(ctx context.Context, card *domain.Card) (*CardView, error) {
	owner, err := s.directory.RequireByID(ctx, card.OwnerID)
	if err != nil {
		return nil, err
	}
	return s.viewWithOwner(card, owner), nil
}

func (s *CardService) viewWithOwner(card *domain.Card, owner *domain.User) *CardView {
	return &CardView{
		ID:            card.ID,
		MaskedNumber:  s.cipher.MaskCiphertext(card.EncryptedNumber),
		OwnerID:       card.OwnerID,
		OwnerUsername: owner.Username,
		Expiration:    card.Expiration,
		Status:        card.Status,
		Balance:       card.Balance,
		CreatedAt:     card.CreatedAt,
		UpdatedAt:     card.UpdatedAt,
	}
}

func (s *CardService) pageBounds(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size <= 0 {
		size = 10
	}
	if s.cfg.MaxPageSize > 0 && size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}

func (s *CardService) publishStatusChange(ctx context.Context, card *domain.Card, old domain.CardStatus, reason events.StatusChangeReason, actor *domain.User) {
	s.publish(ctx, events.New(events.EventCardStatusChanged, card.ID, events.ActorFrom(actor), s.now(), events.CardStatusChangedPayload{
		OldStatus: old,
		NewStatus: card.Status,
		Reason:    reason,
	}))
}

// publish runs after commit; a failing subscriber never fails the operation.
func (s *CardService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("card_id", event.CardID),
			zap.Error(err))
	}
}

func validateCardInput(in CardInput) error {
	details := map[string]any{}
	if in.Number == "" {
		details["number"] = "required"
	}
	if in.OwnerID == "" {
		details["owner_id"] = "required"
	}
	if in.Expiration.IsZero() {
		details["expiration"] = "required"
	}
	switch {
	case in.Balance.IsNegative():
		details["balance"] = "must not be negative"
	case !fitsMoneyScale(in.Balance):
		details["balance"] = "more than 2 decimal places"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid card", details)
	}
	return nil
}

// moneyScale matches the NUMERIC(19,2) columns. Finer values would be
// rounded by Postgres on write.
const moneyScale = 2

func fitsMoneyScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(moneyScale))
}

// sameID compares card ids, treating different spellings of one uuid as equal.
func sameID(a, b string) bool {
	if a == b {
		return true
	}
	pa, errA := uuid.Parse(a)
	pb, errB := uuid.Parse(b)
	return errA == nil && errB == nil && pa == pb
}

func cardNotFound(id string) error {
	return apperrors.NewNotFound("card", map[string]any{"id": id})
}
