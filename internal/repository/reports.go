package repository

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

type ReportRepository struct {
	col *Collection[model.Report]
}

func NewReportRepository(s store.Store, origin string) *ReportRepository {
	return &ReportRepository{col: NewCollection[model.Report](s, model.KeyReports, origin)}
}

func (r *ReportRepository) All(ctx context.Context) ([]model.Report, error) {
	return r.col.All(ctx)
}

func (r *ReportRepository) Create(ctx context.Context, rep model.Report) error {
	return r.col.Append(ctx, rep)
}

func (r *ReportRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.col.Filter(ctx, func(rep model.Report) bool { return rep.ID == id })
	return n > 0, err
}

// DeleteTargeting removes the reports filed against userID.
func (r *ReportRepository) DeleteTargeting(ctx context.Context, userID int64) (int, error) {
	return r.col.Filter(ctx, func(rep model.Report) bool { return rep.Targets(userID) })
}
