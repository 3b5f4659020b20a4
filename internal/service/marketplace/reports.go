package marketplace

import (
	"context"
	"fmt"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
)

// CreateReport files a report against exactly one user or listing and
// forwards a copy to the support account as a direct message.
//
// Behavior:
//   - reason is required; setting both or neither target is invalid.
//   - an unknown reporter or target is a silent no-op.
//   - without a support account the report is still stored.
func (s *Service) CreateReport(ctx context.Context, in model.ReportInput) (*model.Report, error) {
	in.Normalize()
	if err := model.ValidateReport(in); err != nil {
		return nil, err
	}

	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	reporter := model.FindUser(users, in.ReporterID)
	if reporter == nil {
		return nil, nil
	}

	r := model.Report{
		ID:               s.appCtx.IDs.Next(),
		ReporterID:       reporter.ID,
		ReporterUsername: reporter.Username,
		Reason:           in.Reason,
		CreatedAt:        s.appCtx.Now().UTC(),
	}

	if in.ReportedUserID != nil {
		target := model.FindUser(users, *in.ReportedUserID)
		if target == nil {
			return nil, nil
		}
		id := target.ID
		r.ReportedUserID = &id
		r.ReportedUsername = target.Username
	} else {
		listing, err := s.findListing(ctx, *in.ListingID)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			return nil, nil
		}
		id := listing.ID
		r.ListingID = &id
		r.ListingTitle = listing.Title
	}

	if err := s.repos.Reports.Create(ctx, r); err != nil {
		return nil, err
	}

	if support := model.FindUserByName(users, s.SupportUsername()); support != nil && support.ID != reporter.ID {
		if _, err := s.deliver(ctx, reporter.ID, support.ID, r.Notice(), nil); err != nil {
			s.appCtx.Logger.Warn("report stored but support notice failed", "report_id", r.ID, "err", err)
		}
	}

	s.appCtx.Logger.Info("report filed", "report_id", r.ID, "reporter", reporter.ID)
	return &r, nil
}

// ReportUser is the user variant of CreateReport.
func (s *Service) ReportUser(ctx context.Context, reporterID, reportedUserID int64, reason string) (*model.Report, error) {
	return s.CreateReport(ctx, model.ReportInput{ReporterID: reporterID, ReportedUserID: &reportedUserID, Reason: reason})
}

// ReportListing is the listing variant of CreateReport.
func (s *Service) ReportListing(ctx context.Context, reporterID, listingID int64, reason string) (*model.Report, error) {
	return s.CreateReport(ctx, model.ReportInput{ReporterID: reporterID, ListingID: &listingID, Reason: reason})
}

// GetReports returns the raw queue. Callers acting for a user go through
// ReportQueue, which enforces the support-only rule.
func (s *Service) GetReports(ctx context.Context) ([]model.Report, error) {
	reports, err := s.repos.Reports.All(ctx)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []model.Report{}
	}
	return reports, nil
}

// ReportQueue returns every report; only the support account may read it.
func (s *Service) ReportQueue(ctx context.Context, actorID int64) ([]model.Report, error) {
	if err := s.requireSupport(ctx, actorID); err != nil {
		return nil, err
	}
	return s.GetReports(ctx)
}

// DismissReport deletes a report. Support only.
func (s *Service) DismissReport(ctx context.Context, actorID, reportID int64) error {
	if err := s.requireSupport(ctx, actorID); err != nil {
		return err
	}
	_, err := s.repos.Reports.Delete(ctx, reportID)
	return err
}

// DeleteAccount removes a user with its listings and the reports filed
// against it. Support only.
func (s *Service) DeleteAccount(ctx context.Context, actorID, userID int64) error {
	if err := s.requireSupport(ctx, actorID); err != nil {
		return err
	}
	return s.DeleteUserCascade(ctx, userID)
}

// DeleteUserCascade removes the user record, every listing they own,
// every report targeting them and their block list. Their messages are
// kept. An unknown user still has the cascade applied.
func (s *Service) DeleteUserCascade(ctx context.Context, userID int64) error {
	if _, err := s.repos.Users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	listings, err := s.repos.Listings.DeleteByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete listings: %w", err)
	}
	reports, err := s.repos.Reports.DeleteTargeting(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}
	if err := s.repos.Blocks.Drop(ctx, userID); err != nil {
		return fmt.Errorf("drop block list: %w", err)
	}

	s.appCtx.Logger.Info("account deleted", "user_id", userID, "listings", listings, "reports", reports)
	return nil
}

func (s *Service) requireSupport(ctx context.Context, actorID int64) error {
	actor, err := s.repos.Users.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil || !s.isSupport(actor.Username) {
		return fmt.Errorf("moderation requires the support account: %w", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) findListing(ctx context.Context, id int64) (*model.Listing, error) {
	listings, err := s.GetListings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range listings {
		if listings[i].ID == id {
			return &listings[i], nil
		}
	}
	return nil, nil
}
