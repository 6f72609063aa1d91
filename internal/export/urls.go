package export

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/search"
	urlkit "github.com/goliatone/go-urlkit"
)

// DefaultURLGroup is the route group rows link into when none is named.
const DefaultURLGroup = "public"

// Route params filled for every row.
const (
	ParamID       = "id"
	ParamBundle   = "bundle"
	ParamLangcode = "langcode"
)

// DefaultRoutes returns a public group with one "/<kind>/:id" route per
// record kind. Route names are record kinds.
func DefaultRoutes() *urlkit.Config {
	paths := map[string]string{}
	for _, kind := range []content.Kind{
		content.KindPrimary,
		content.KindEmbedded,
		content.KindTaxonomyTerm,
		content.KindUserProfile,
		content.KindBlock,
	} {
		paths[string(kind)] = "/" + string(kind) + "/:" + ParamID
	}
	return &urlkit.Config{
		Groups: []urlkit.GroupConfig{{Name: DefaultURLGroup, Paths: paths}},
	}
}

// URLResolver builds row URLs through a go-urlkit route manager. Groups are
// addressed by dotted path, e.g. "public.fr".
type URLResolver struct {
	config  *urlkit.Config
	manager *urlkit.RouteManager

	mu       sync.Mutex
	rebased  map[string]*urlkit.RouteManager
	groupsBy map[*urlkit.RouteManager]map[string]*urlkit.Group
}

// NewURLResolver constructs a resolver; a nil config uses DefaultRoutes.
func NewURLResolver(cfg *urlkit.Config) *URLResolver {
	if cfg == nil {
		cfg = DefaultRoutes()
	}
	return &URLResolver{
		config:   cfg,
		manager:  urlkit.NewRouteManager(cfg),
		rebased:  map[string]*urlkit.RouteManager{},
		groupsBy: map[*urlkit.RouteManager]map[string]*urlkit.Group{},
	}
}

// Resolve builds the URL of item in group. A non-empty baseURL replaces the
// base URL of the top-level groups.
func (r *URLResolver) Resolve(group, baseURL string, item search.Item) (string, error) {
	if r == nil {
		return "", nil
	}
	group = strings.TrimSpace(group)
	if group == "" {
		group = DefaultURLGroup
	}
	manager := r.managerFor(strings.TrimRight(strings.TrimSpace(baseURL), "/"))

	g, err := r.groupForPath(manager, group)
	if err != nil {
		return "", err
	}
	builder, err := safeBuilder(g, string(item.Kind))
	if err != nil {
		return "", err
	}
	builder.WithParam(ParamID, item.RecordID.String())
	if item.Bundle != "" {
		builder.WithParam(ParamBundle, item.Bundle)
	}
	if item.Langcode != "" {
		builder.WithParam(ParamLangcode, item.Langcode)
	}
	return builder.Build()
}

func (r *URLResolver) managerFor(baseURL string) *urlkit.RouteManager {
	if baseURL == "" {
		return r.manager
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if manager, ok := r.rebased[baseURL]; ok {
		return manager
	}
	cfg := *r.config
	cfg.Groups = make([]urlkit.GroupConfig, len(r.config.Groups))
	for i, group := range r.config.Groups {
		group.BaseURL = baseURL
		cfg.Groups[i] = group
	}
	manager := urlkit.NewRouteManager(&cfg)
	r.rebased[baseURL] = manager
	return manager
}

func (r *URLResolver) groupForPath(manager *urlkit.RouteManager, path string) (*urlkit.Group, error) {
	r.mu.Lock()
	cached, ok := r.groupsBy[manager][path]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	parts := strings.Split(path, ".")
	current, err := lookupGroup(manager, parts[0])
	if err != nil {
		return nil, err
	}
	for _, part := range parts[1:] {
		if current, err = lookupChildGroup(current, part); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	if r.groupsBy[manager] == nil {
		r.groupsBy[manager] = map[string]*urlkit.Group{}
	}
	r.groupsBy[manager][path] = current
	r.mu.Unlock()
	return current, nil
}

func safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	if group == nil {
		return nil, fmt.Errorf("export: urlkit group is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("export: no route %q: %v", route, rec)
		}
	}()
	builder = group.Builder(route)
	if builder == nil {
		return nil, fmt.Errorf("export: no route %q", route)
	}
	return builder, nil
}

func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("export: route group %q not found", name)
		}
	}()
	group = manager.Group(name)
	if group == nil {
		return nil, fmt.Errorf("export: route group %q not found", name)
	}
	return group, nil
}

func lookupChildGroup(parent *urlkit.Group, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("export: child group %q not found", name)
		}
	}()
	group = parent.Group(name)
	if group == nil {
		return nil, fmt.Errorf("export: child group %q not found", name)
	}
	return group, nil
}
