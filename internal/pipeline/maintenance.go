package pipeline

import (
	"context"

	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/services"
)

type maintenance struct {
	env *Env
}

func (m maintenance) done(ctx context.Context, kind job.Type, updated int) {
	logging.WithContext(ctx, m.env.logger()).Info("catalog updated",
		logging.String(logging.FieldEventType, "catalog_updated"),
		logging.String(logging.FieldJobType, string(kind)),
		logging.Int("updated", updated),
	)
}

func missingPayload(kind job.Type) error {
	return services.Wrap(services.ErrValidation, string(kind), "read payload", "payload missing", nil)
}

func (m maintenance) tagDay(ctx context.Context, rec *job.Record) error {
	if rec.TagDay == nil {
		return missingPayload(job.TypeTagDay)
	}
	n, err := m.env.Catalog.TagDay(ctx, rec.TagDay.Day, rec.TagDay.Tags)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(job.TypeTagDay), "tag day", rec.TagDay.Day.String(), err)
	}
	m.done(ctx, job.TypeTagDay, n)
	return nil
}

func (m maintenance) massTag(ctx context.Context, rec *job.Record) error {
	if rec.MassTag == nil {
		return missingPayload(job.TypeMassTag)
	}
	n, err := m.env.Catalog.MassTag(ctx, rec.MassTag.Keys, rec.MassTag.Tags)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(job.TypeMassTag), "mass tag", "", err)
	}
	m.done(ctx, job.TypeMassTag, n)
	return nil
}

func (m maintenance) editDates(ctx context.Context, rec *job.Record) error {
	if rec.EditDates == nil {
		return missingPayload(job.TypeEditDates)
	}
	n, err := m.env.Catalog.EditDates(ctx, rec.EditDates.Items)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(job.TypeEditDates), "edit dates", "", err)
	}
	m.done(ctx, job.TypeEditDates, n)
	return nil
}

func (m maintenance) changeDate(ctx context.Context, rec *job.Record) error {
	if rec.ChangeDate == nil {
		return missingPayload(job.TypeChangeDate)
	}
	from, to := rec.ChangeDate.From, rec.ChangeDate.To
	n, err := m.env.Catalog.ChangeDate(ctx, from, to)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(job.TypeChangeDate), "change date", from.String()+" -> "+to.String(), err)
	}
	m.done(ctx, job.TypeChangeDate, n)
	return nil
}
