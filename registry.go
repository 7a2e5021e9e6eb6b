package autocrud

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/ettle/strcase"
	"github.com/gertd/go-pluralize"
	"github.com/gobwas/glob"
)

var pluralizer = pluralize.NewClient()

// Resource is everything registered for one entity type.
type Resource struct {
	Name       string
	Plural     string
	Route      string
	Schema     *Schema
	Admin      AdminConfig
	Serializer *Serializer
	ViewSet    *ViewSet
}

// ResourceOption customizes a resource at registration.
type ResourceOption func(*Resource)

// WithResourceName overrides the derived singular name.
func WithResourceName(name string) ResourceOption {
	return func(r *Resource) {
		r.Name = pluralizer.Singular(name)
		r.Plural = pluralizer.Plural(name)
		r.Route = "/" + r.Plural
	}
}

// WithComputed appends computed fields to the serializer.
func WithComputed(fields ...ComputedField) ResourceOption {
	return func(r *Resource) {
		r.Serializer.Computed = append(r.Serializer.Computed, fields...)
	}
}

// WithInlines edits the given child types inline in the admin.
func WithInlines(items ...any) ResourceOption {
	return func(r *Resource) {
		types := make([]reflect.Type, 0, len(items))
		for _, item := range items {
			types = append(types, reflect.TypeOf(item))
		}
		r.Admin.Inlines = append(r.Admin.Inlines, DefaultAdmin(r.Schema, types...).Inlines...)
	}
}

// WithAdmin adjusts the admin configuration.
func WithAdmin(fn func(*AdminConfig)) ResourceOption {
	return func(r *Resource) {
		fn(&r.Admin)
	}
}

// Registry maps entity types to their resources. It replaces naming
// conventions with explicit Register calls at startup.
type Registry struct {
	mu        sync.RWMutex
	byType    map[reflect.Type]*Resource
	byPlural  map[string]*Resource
	excluded  []glob.Glob
	logger    Logger
	paginator Paginator
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger shared by every view set.
func WithLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithPaginator sets the paginator shared by every view set.
func WithPaginator(p Paginator) RegistryOption {
	return func(r *Registry) {
		r.paginator = p
	}
}

// WithExcludedModels skips type names matching any glob pattern,
// e.g. "Audit*".
func WithExcludedModels(patterns ...string) RegistryOption {
	return func(r *Registry) {
		for _, p := range patterns {
			r.excluded = append(r.excluded, glob.MustCompile(p))
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byType:    map[reflect.Type]*Resource{},
		byPlural:  map[string]*Resource{},
		logger:    DefaultLogger(),
		paginator: NewPaginator(DefaultPageSize, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register wires T to source. It fails for excluded type names and for
// types or routes already registered.
func Register[T any](r *Registry, source CollectionSource, opts ...ResourceOption) (*Resource, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return r.register(t, source, opts...)
}

func (r *Registry) register(t reflect.Type, source CollectionSource, opts ...ResourceOption) (*Resource, error) {
	t = indirectType(t)

	if r.isExcluded(t.Name()) {
		return nil, fmt.Errorf("%s: %w", t.Name(), ErrExcluded)
	}

	schema, err := SchemaFor(t)
	if err != nil {
		return nil, err
	}

	name, plural := ResourceName(t)
	res := &Resource{
		Name:       name,
		Plural:     plural,
		Route:      "/" + plural,
		Schema:     schema,
		Admin:      DefaultAdmin(schema),
		Serializer: NewSerializer(schema),
	}
	for _, opt := range opts {
		opt(res)
	}

	res.ViewSet = &ViewSet{
		Resource:   res.Name,
		Schema:     schema,
		Source:     source,
		Serializer: res.Serializer,
		Translator: NewQueryTranslator(r.logger),
		Paginator:  r.paginator,
		Logger:     r.logger,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[t]; ok {
		return nil, newRegistrationConflict(fmt.Sprintf("%s is already registered at %s", t.Name(), existing.Route), map[string]any{
			"type":  t.Name(),
			"route": existing.Route,
		})
	}
	if existing, ok := r.byPlural[res.Plural]; ok {
		return nil, newRegistrationConflict(fmt.Sprintf("route %s is already used by %s", res.Route, existing.Schema.Name), map[string]any{
			"type":          t.Name(),
			"route":         res.Route,
			"existing_type": existing.Schema.Name,
		})
	}

	r.byType[t] = res
	r.byPlural[res.Plural] = res
	r.logger.Debug("registered %s at %s", t.Name(), res.Route)

	return res, nil
}

// Resources returns every resource sorted by route.
func (r *Registry) Resources() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Resource, 0, len(r.byPlural))
	for _, res := range r.byPlural {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Lookup finds a resource by plural name.
func (r *Registry) Lookup(plural string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byPlural[strings.Trim(plural, "/")]
	return res, ok
}

// ResourceFor finds the resource registered for t.
func (r *Registry) ResourceFor(t reflect.Type) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byType[indirectType(t)]
	return res, ok
}

func (r *Registry) isExcluded(name string) bool {
	for _, g := range r.excluded {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ResourceName returns the singular and plural resource names for typ.
// A `crud:"resource:<name>"` tag on any field overrides the kebab-cased
// type name.
func ResourceName(typ reflect.Type) (string, string) {
	typ = indirectType(typ)

	resourceName := ""
	for i := 0; i < typ.NumField(); i++ {
		opts := parseCrudTag(typ.Field(i).Tag.Get(TAG_CRUD))
		if value := opts.values[TAG_KEY_RESOURCE]; value != "" {
			resourceName = value
			break
		}
	}

	if resourceName == "" {
		resourceName = strcase.ToKebab(typ.Name())
	}

	return pluralizer.Singular(resourceName), pluralizer.Plural(resourceName)
}
