package feiseanna

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/domain/payments"
	"github.com/ifeis/server/internal/email"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AccountMerger finds or creates the account behind an email address.
type AccountMerger interface {
	MergeByEmail(ctx context.Context, address, fname, lname string) (*accounts.Person, bool, error)
}

// BalanceSource reports what an account still owes.
type BalanceSource interface {
	Due(ctx context.Context, accountID string) ([]payments.Balance, error)
}

type Service struct {
	repo      Repository
	accounts  AccountMerger
	balances  BalanceSource
	mail      email.Queue
	validator *validator.Validate
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo Repository, accts AccountMerger, balances BalanceSource, mail email.Queue, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		accounts:  accts,
		balances:  balances,
		mail:      mail,
		validator: validator.New(),
		now:       time.Now,
		logger:    logger.With().Str("component", "feiseanna").Logger(),
	}
}

// CreateInvitation invites someone to create a feis. People without an
// account get a placeholder one and a different email.
func (s *Service) CreateInvitation(ctx context.Context, input InvitationInput) (*Invitation, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, errs.Validation(err)
	}
	acct, created, err := s.accounts.MergeByEmail(ctx, input.Email, input.FName, input.LName)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate invitation id: %w", err)
	}
	inv, err := s.repo.CreateInvitation(ctx, Invitation{
		ID:        id,
		AccountID: acct.ID,
		Fee:       input.Fee,
		Deposit:   input.Deposit,
	})
	if err != nil {
		return nil, err
	}
	inv.Person = acct

	msg := email.Message{
		Template: email.TemplateFeisInvite,
		Subject:  "Create your feis!",
		To:       acct.Email,
		Data:     map[string]any{"FName": acct.FName, "InviteID": inv.ID},
	}
	if created {
		msg.Template = email.TemplateFeisInviteNew
		msg.Subject = "You've been invited to create a feis!"
	}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		return nil, fmt.Errorf("queue invitation email: %w", err)
	}

	s.logger.Info().Str("invitation_id", inv.ID).Str("account_id", acct.ID).Bool("new_account", created).Msg("feis invitation created")
	return inv, nil
}

func (s *Service) Invitations(ctx context.Context) ([]Invitation, error) {
	return s.repo.Invitations(ctx)
}

func (s *Service) Invitation(ctx context.Context, id string) (*Invitation, error) {
	return s.repo.Invitation(ctx, id)
}

// InviteIsFor returns the invitation when it was issued to accountID.
func (s *Service) InviteIsFor(ctx context.Context, id, accountID string) (*Invitation, error) {
	inv, err := s.repo.Invitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, ErrInvitationNotYours
	}
	return inv, nil
}

// InvalidateInvitation withdraws an invitation that has not been used.
func (s *Service) InvalidateInvitation(ctx context.Context, id string) (*Invitation, error) {
	ok, err := s.repo.InvalidateInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Invalid("Used invitations cannot be invalidated.")
	}
	return s.repo.Invitation(ctx, id)
}

// RemindStale re-sends the invitation email once for every invitation left
// unused for longer than after. It returns how many reminders were queued.
func (s *Service) RemindStale(ctx context.Context, after time.Duration) (int, error) {
	now := s.now()
	stale, err := s.repo.StaleInvitations(ctx, now.Add(-after))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, inv := range stale {
		if inv.Person == nil || inv.Person.Email == "" {
			continue
		}
		err := s.mail.Enqueue(ctx, email.Message{
			Template: email.TemplateFeisInvite,
			Subject:  "Your feis invitation is waiting",
			To:       inv.Person.Email,
			Data:     map[string]any{"FName": inv.Person.FName, "InviteID": inv.ID},
		})
		if err != nil {
			return sent, fmt.Errorf("queue reminder for %s: %w", inv.ID, err)
		}
		if err := s.repo.MarkReminded(ctx, inv.ID, now); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	return s.repo.Templates(ctx)
}

// ImportTemplates stores templates, replacing any with the same name.
func (s *Service) ImportTemplates(ctx context.Context, list []Template) (int, error) {
	for i, t := range list {
		t.Name = sanitize.Text(t.Name)
		if t.Name == "" {
			return 0, errs.Invalid("Template %d has no name.", i+1)
		}
		for j, e := range t.Events {
			if err := s.validator.Struct(e); err != nil {
				return 0, errs.Invalid("Template %q event %d: %s", t.Name, j+1, err.Error())
			}
		}
		list[i] = t
	}

	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		for _, t := range list {
			if t.ID == "" {
				id, err := ids.NewULID()
				if err != nil {
					return fmt.Errorf("generate template id: %w", err)
				}
				t.ID = id
			}
			if _, err := tx.SaveTemplate(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (s *Service) One(ctx context.Context, id string) (*Feis, error) {
	return s.repo.Get(ctx, id)
}

// All lists public feiseanna together with every feis the account is
// involved in, newest first.
func (s *Service) All(ctx context.Context, accountID string, includePast bool) ([]Summary, error) {
	public, err := s.repo.Public(ctx, includePast, s.now())
	if err != nil {
		return nil, err
	}
	var mine []Summary
	if accountID != "" {
		if mine, err = s.forUser(ctx, accountID); err != nil {
			return nil, err
		}
	}
	parts := []Summary{}
	for _, f := range public {
		parts = append(parts, Summary{Feis: f})
	}
	return merge(append(mine, parts...)), nil
}

// ForUser lists the feiseanna the account holds roles at, has saved, or
// owes money to.
func (s *Service) ForUser(ctx context.Context, accountID string) ([]Summary, error) {
	parts, err := s.forUser(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return merge(parts), nil
}

func (s *Service) forUser(ctx context.Context, accountID string) ([]Summary, error) {
	var granted, saved []Summary
	var balances []payments.Balance

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		granted, err = s.repo.GrantedTo(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		saved, err = s.repo.SavedBy(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.balances.Due(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parts := make([]Summary, 0, len(granted)+len(saved)+len(balances))
	parts = append(parts, granted...)
	parts = append(parts, saved...)
	for _, b := range balances {
		parts = append(parts, Summary{Feis: Feis{ID: b.Feis.ID, Name: b.Feis.Name, Slug: b.Feis.Slug}, Balance: b.Balance})
	}
	return parts, nil
}

// merge folds partial summaries of the same feis together. The first full
// feis record seen wins.
func merge(parts []Summary) []Summary {
	byID := map[string]*Summary{}
	var order []string
	for _, p := range parts {
		cur, ok := byID[p.Feis.ID]
		if !ok {
			c := Summary{Feis: p.Feis}
			cur = &c
			byID[p.Feis.ID] = cur
			order = append(order, p.Feis.ID)
		}
		if cur.Feis.TZ == "" && p.Feis.TZ != "" {
			cur.Feis = p.Feis
		}
		if len(p.Grants) > 0 {
			cur.Grants = p.Grants
		}
		cur.Saved = cur.Saved || p.Saved
		cur.Registered = cur.Registered || p.Registered
		if p.Balance != 0 {
			cur.Balance = p.Balance
		}
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		s := *byID[id]
		if s.Grants == nil {
			s.Grants = []grants.Role{}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Feis.DtStart, out[j].Feis.DtStart
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out
}

// Create turns an invitation into a private feis chaired by the invitee,
// optionally seeded with a syllabus template.
func (s *Service) Create(ctx context.Context, accountID string, input CreateInput) (*Feis, error) {
	input.Name = sanitize.Text(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, errs.Validation(err)
	}
	feisID, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate feis id: %w", err)
	}
	grantID, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate grant id: %w", err)
	}

	copied := 0
	err = s.repo.WithTransaction(ctx, func(tx Repository) error {
		inv, err := tx.LockInvitation(ctx, input.InviteID)
		if err != nil {
			return err
		}
		if inv.AccountID != accountID {
			return ErrInvitationNotYours
		}
		if inv.Used || inv.Invalid {
			return ErrInvitationUsed
		}

		if err := tx.Create(ctx, Feis{
			ID:       feisID,
			Name:     input.Name,
			Slug:     ids.Slugify(input.Name),
			TZ:       input.TZ,
			InviteID: inv.ID,
		}); err != nil {
			return err
		}
		if err := tx.GrantChair(ctx, grantID, feisID, accountID); err != nil {
			return err
		}
		if err := tx.MarkInvitationUsed(ctx, inv.ID); err != nil {
			return err
		}

		if input.TemplateID == "" {
			return nil
		}
		tpl, err := tx.Template(ctx, input.TemplateID)
		if err != nil {
			return err
		}
		list := make([]events.Event, 0, len(tpl.Events))
		for _, in := range tpl.Events {
			id, err := ids.NewULID()
			if err != nil {
				return fmt.Errorf("generate event id: %w", err)
			}
			list = append(list, templateEvent(id, feisID, in))
		}
		copied = len(list)
		return tx.InsertEvents(ctx, list)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("feis_id", feisID).
		Str("account_id", accountID).
		Str("template_id", input.TemplateID).
		Int("events", copied).
		Msg("feis created")
	return s.repo.Get(ctx, feisID)
}

func templateEvent(id, feisID string, in events.Input) events.Event {
	e := events.Event{
		ID:             id,
		FeisID:         feisID,
		Name:           in.Name,
		Code:           in.Code,
		Level:          in.Level,
		Age:            in.Age,
		Type:           in.Type,
		AgeMin:         in.AgeMin,
		AgeMax:         in.AgeMax,
		Fee:            in.Fee,
		ExcludeFromMax: in.ExcludeFromMax,
		Recall:         in.Recall,
		Places:         in.Places,
		Rounds:         in.Rounds,
		Details:        in.Details,
	}
	return e.WithStatus()
}

func (s *Service) Finalize(ctx context.Context, id string) (*Feis, error) {
	return s.repo.SetFinalized(ctx, id)
}

func (s *Service) Publish(ctx context.Context, id string) (*Feis, error) {
	return s.repo.SetPublic(ctx, id, true)
}

func (s *Service) Unpublish(ctx context.Context, id string) (*Feis, error) {
	return s.repo.SetPublic(ctx, id, false)
}

// Update replaces the editable fields of a feis and regenerates its slug.
func (s *Service) Update(ctx context.Context, id string, u Update) (*Feis, error) {
	for _, field := range []*string{u.Name, u.LocName, u.LocAddr} {
		if field != nil {
			*field = sanitize.Text(*field)
		}
	}
	if u.Description != nil {
		*u.Description = sanitize.HTML(*u.Description)
	}
	if err := s.validator.Struct(u); err != nil {
		return nil, errs.Validation(err)
	}
	if u.URL != nil {
		*u.URL = strings.TrimSpace(*u.URL)
		if err := s.validator.Struct(urlField{URL: *u.URL}); err != nil {
			return nil, errs.Validation(err)
		}
	}

	var out *Feis
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		current, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		next := u.apply(*current)
		next.Slug = ids.Slugify(next.Name)
		if next.DtStart != nil && next.DtEnd != nil && next.DtEnd.Before(*next.DtStart) {
			return errs.Invalid("dt_end must not precede dt_start.")
		}
		out, err = tx.Update(ctx, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Participants pages through the people registered at a feis. filter
// matches first name, last name, or competitor number.
func (s *Service) Participants(ctx context.Context, feisID, filter string, offset, limit int) ([]events.Competitor, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultParticipantLimit
	}
	limit = min(limit, 500)
	return s.repo.Participants(ctx, feisID, strings.TrimSpace(filter), offset, limit)
}

func (s *Service) Participant(ctx context.Context, feisID string, num int) (*events.Competitor, error) {
	return s.repo.Participant(ctx, feisID, num)
}

func (s *Service) AccountsWithoutPayment(ctx context.Context, feisID string) ([]accounts.Person, error) {
	return s.repo.AccountsWithoutPayment(ctx, feisID)
}

func (s *Service) CompetitorsBySchool(ctx context.Context, feisID string) ([]SchoolCount, error) {
	return s.repo.CompetitorsBySchool(ctx, feisID)
}

// ScoresForPerson lists the events in results the person danced in.
func (s *Service) ScoresForPerson(ctx context.Context, feisID, personID string) ([]PersonResult, error) {
	return s.repo.ScoresForPerson(ctx, feisID, personID)
}

// PlacementsForPerson is ScoresForPerson limited to placed results.
func (s *Service) PlacementsForPerson(ctx context.Context, feisID, personID string) ([]PersonResult, error) {
	all, err := s.repo.ScoresForPerson(ctx, feisID, personID)
	if err != nil {
		return nil, err
	}
	placed := []PersonResult{}
	for _, r := range all {
		if r.Score.Placed {
			placed = append(placed, r)
		}
	}
	return placed, nil
}

func (s *Service) Star(ctx context.Context, feisID, accountID string) (*Feis, error) {
	if err := s.repo.Star(ctx, feisID, accountID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, feisID)
}

// Unstar removes a saved feis unless the account has people registered there.
func (s *Service) Unstar(ctx context.Context, feisID, accountID string) error {
	registered, err := s.repo.HasRegistrations(ctx, feisID, accountID)
	if err != nil {
		return err
	}
	if registered {
		return ErrStillRegistered
	}
	return s.repo.Unstar(ctx, feisID, accountID)
}
