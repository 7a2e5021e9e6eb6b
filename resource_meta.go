package autocrud

import (
	"github.com/ettle/strcase"
)

// Parameter describes a query or path parameter of a route.
type Parameter struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// RouteMeta describes one endpoint of a resource.
type RouteMeta struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	Name       string      `json:"name"`
	Summary    string      `json:"summary"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// ResourceMeta is the self-description served for a resource.
type ResourceMeta struct {
	Name          string            `json:"name"`
	Plural        string            `json:"plural"`
	Label         string            `json:"label"`
	PluralLabel   string            `json:"plural_label"`
	Route         string            `json:"route"`
	Table         string            `json:"table"`
	PrimaryKey    string            `json:"primary_key"`
	Fields        []FieldDescriptor `json:"fields"`
	DisplayFields []string          `json:"display_fields"`
	SearchFields  []string          `json:"search_fields"`
	Admin         AdminConfig       `json:"admin"`
	Routes        []RouteMeta       `json:"routes"`
}

// ResourceTitle returns human labels, e.g. "Order Item" and "Order Items".
func ResourceTitle(name, plural string) (string, string) {
	return strcase.ToCase(name, strcase.TitleCase, ' '), strcase.ToCase(plural, strcase.TitleCase, ' ')
}

// Meta describes the resource and the routes it is served on.
func (r *Resource) Meta() ResourceMeta {
	label, pluralLabel := ResourceTitle(r.Name, r.Plural)

	return ResourceMeta{
		Name:          r.Name,
		Plural:        r.Plural,
		Label:         label,
		PluralLabel:   pluralLabel,
		Route:         r.Route,
		Table:         r.Schema.Table,
		PrimaryKey:    r.Schema.PKName(),
		Fields:        r.Schema.Fields,
		DisplayFields: DisplayFields(r.Schema, DefaultDisplayDepth),
		SearchFields:  TextFields(r.Schema, DefaultSearchDepth),
		Admin:         r.Admin,
		Routes:        r.routes(pluralLabel),
	}
}

func (r *Resource) routes(pluralLabel string) []RouteMeta {
	listParams := []Parameter{
		{Name: DefaultPageParam, In: "query", Description: "page number, last or all"},
		{Name: DefaultSizeParam, In: "query", Description: "rows per page or all"},
		{Name: OrderByParam, In: "query", Description: "comma separated fields, prefix - for descending"},
		{Name: QueryBlobParam, In: "query", Description: "lz-string compressed JSON of extra parameters"},
		{Name: CheckLastUpdatedParam, In: "query", Description: "answer with the count of rows updated since last_updated"},
		{Name: LastUpdatedParam, In: "query"},
	}

	return []RouteMeta{
		{
			Method:     "GET",
			Path:       r.Route,
			Name:       r.Name + ":list",
			Summary:    "List " + pluralLabel,
			Parameters: listParams,
		},
		{
			Method:     "GET",
			Path:       r.Route + "/:id",
			Name:       r.Name + ":read",
			Summary:    "Get " + r.Name,
			Parameters: []Parameter{{Name: "id", In: "path", Required: true}},
		},
		{
			Method:  "GET",
			Path:    "/_periods" + r.Route,
			Name:    r.Name + ":periods",
			Summary: "List the periods covered by " + pluralLabel,
			Parameters: []Parameter{
				{Name: "field", In: "query", Required: true},
				{Name: "parts", In: "query", Description: "comma separated year, quarter, month, week, weekday, day"},
				{Name: "separator", In: "query"},
			},
		},
	}
}
