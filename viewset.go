package autocrud

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-autocrud"

// UpdatedAtField is compared against last_updated.
const UpdatedAtField = "updated_at"

// ListRequest carries the transport inputs of a list call.
type ListRequest struct {
	Params map[string]string
	URL    *url.URL
}

// ViewSet serves the read endpoints of one resource.
type ViewSet struct {
	Resource   string
	Schema     *Schema
	Source     CollectionSource
	Serializer *Serializer
	Translator *QueryTranslator
	Paginator  Paginator
	Logger     Logger
	Tracer     trace.Tracer
}

// Respond answers a list request. With check_last_updated set it
// returns a *CountResponse, otherwise an *Envelope.
func (v *ViewSet) Respond(ctx context.Context, req ListRequest) (any, error) {
	query := v.translator().Translate(v.Schema, req.Params)
	if since, ok := CheckLastUpdated(query.Params); ok {
		return v.countUpdated(ctx, query, since)
	}
	return v.list(ctx, query, req)
}

// List filters, orders and paginates the collection.
func (v *ViewSet) List(ctx context.Context, req ListRequest) (*Envelope, error) {
	return v.list(ctx, v.translator().Translate(v.Schema, req.Params), req)
}

// UpdatedSince counts the filtered rows updated at or after since.
func (v *ViewSet) UpdatedSince(ctx context.Context, req ListRequest, since time.Time) (*CountResponse, error) {
	return v.countUpdated(ctx, v.translator().Translate(v.Schema, req.Params), since)
}

func (v *ViewSet) list(ctx context.Context, query ListQuery, req ListRequest) (envelope *Envelope, err error) {
	ctx, span := v.tracer().Start(ctx, "autocrud.list", trace.WithAttributes(
		attribute.String("autocrud.resource", v.Resource),
		attribute.String("autocrud.where", query.Where().String()),
		attribute.StringSlice("autocrud.order_by", query.OrderBy),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	coll, err := v.open(ctx)
	if err != nil {
		return nil, err
	}

	coll, err = query.Apply(coll, DefaultOrdering(v.Schema), v.logger())
	if err != nil {
		return nil, err
	}

	pageReq := v.Paginator.Parse(req.Params, query.Params)
	page, err := v.Paginator.Paginate(ctx, coll, pageReq, req.URL)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("autocrud.count", page.Count),
		attribute.Int("autocrud.page", page.Number),
		attribute.Bool("autocrud.all", page.All),
	)

	results := v.Serializer.SerializeMany(page.Items)
	meta := BuildMetadata(v.Schema, page.Items)

	return NewEnvelope(page, results, meta, v.Schema.PKName()), nil
}

func (v *ViewSet) countUpdated(ctx context.Context, query ListQuery, since time.Time) (*CountResponse, error) {
	coll, err := v.open(ctx)
	if err != nil {
		return nil, err
	}

	coll = coll.Filter(query.Filter).Filter(query.Search).Exclude(query.Exclude)
	if !since.IsZero() && v.Schema.Has(UpdatedAtField) {
		coll = coll.Filter(Cond(UpdatedAtField, LookupGTE, since.Format(time.RFC3339Nano)))
	}

	count, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: count}, nil
}

// Retrieve serializes the row whose primary key is id.
func (v *ViewSet) Retrieve(ctx context.Context, id string) (map[string]any, error) {
	pk, ok := v.Schema.PrimaryKey()
	if !ok {
		return nil, NewNotFoundError(v.Resource, id)
	}
	if !validValue(pk, LookupExact, id) {
		return nil, NewNotFoundError(v.Resource, id)
	}

	coll, err := v.open(ctx)
	if err != nil {
		return nil, err
	}

	row, err := First(ctx, coll.Filter(Cond(pk.Name, LookupExact, id)))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, NewNotFoundError(v.Resource, id)
	}
	return v.Serializer.Serialize(row), nil
}

// Periods lists every period label between the earliest and latest
// value of field across the filtered collection.
func (v *ViewSet) Periods(ctx context.Context, req ListRequest, field string, separator string, parts ...PeriodPart) ([]string, error) {
	desc, ok := v.Schema.Field(field)
	if !ok {
		return nil, NewBadRequestError(fmt.Sprintf("unknown field %q", field), map[string]any{"field": field})
	}
	switch desc.Category {
	case CategoryDate, CategoryDateTime:
	default:
		return nil, NewBadRequestError(fmt.Sprintf("field %q is not a date", field), map[string]any{"field": field})
	}

	query := v.translator().Translate(v.Schema, req.Params)

	coll, err := v.open(ctx)
	if err != nil {
		return nil, err
	}
	coll = coll.Filter(query.Filter).Filter(query.Search).Exclude(query.Exclude).
		Filter(Cond(desc.Name, LookupIsNull, "false"))

	start, err := v.edge(ctx, coll, desc.Name, false)
	if err != nil {
		return nil, err
	}
	end, err := v.edge(ctx, coll, desc.Name, true)
	if err != nil {
		return nil, err
	}

	return GeneratePeriodList(start, end, separator, parts...), nil
}

func (v *ViewSet) edge(ctx context.Context, coll Collection, field string, last bool) (time.Time, error) {
	order := field
	if last {
		order = "-" + field
	}
	ordered, err := coll.OrderBy(order)
	if err != nil {
		return time.Time{}, err
	}
	row, err := First(ctx, ordered)
	if err != nil || row == nil {
		return time.Time{}, err
	}

	values, err := Env{Schema: v.Schema}.Values(field, row)
	if err != nil || len(values) == 0 {
		return time.Time{}, err
	}
	t, _ := asTime(values[0])
	return t, nil
}

// open annotates a fresh collection with display_name.
func (v *ViewSet) open(ctx context.Context) (Collection, error) {
	coll, err := v.Source(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Annotate(DisplayNameField, DisplayNameExpression(v.Schema)), nil
}

func (v *ViewSet) translator() *QueryTranslator {
	if v.Translator == nil {
		return NewQueryTranslator(v.Logger)
	}
	return v.Translator
}

func (v *ViewSet) logger() Logger {
	return loggerOr(v.Logger)
}

func (v *ViewSet) tracer() trace.Tracer {
	if v.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return v.Tracer
}
