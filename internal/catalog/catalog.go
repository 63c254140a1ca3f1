// Package catalog holds the static game data a solve is built from: knowledge, the categories
// that group it, constellation slot layouts and conversation targets.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidID       = errors.New("invalid id")
)

// Knowledge is a solver item plus the category it was filed under.
type Knowledge struct {
	solver.Item
	CategoryID int
}

// Category is a named group of knowledge. Items keeps load order.
type Category struct {
	ID    int
	Name  string
	Items []solver.ItemID
}

// Constellation is a slot layout shared by several targets.
type Constellation struct {
	ID     int
	Layout solver.SlotLayout
}

// Target is someone to talk to: which knowledge they accept, which constellation they use and
// the interest/favor ranges they can have.
type Target struct {
	ID              int
	Name            string
	CategoryID      int
	ConstellationID int
	InterestMin     int
	InterestMax     int
	FavorMin        int
	FavorMax        int
}

// Catalog is the loaded data set. Name lookups are case-insensitive.
type Catalog struct {
	Knowledge      map[solver.ItemID]*Knowledge
	Categories     map[int]*Category
	Constellations map[int]*Constellation
	Targets        map[int]*Target

	// Warnings collects rows that were skipped while loading.
	Warnings []string

	knowledgeByName map[string]solver.ItemID
	categoryByName  map[string]int
	targetByName    map[string]int
}

func New() *Catalog {
	return &Catalog{
		Knowledge:       make(map[solver.ItemID]*Knowledge),
		Categories:      make(map[int]*Category),
		Constellations:  make(map[int]*Constellation),
		Targets:         make(map[int]*Target),
		knowledgeByName: make(map[string]solver.ItemID),
		categoryByName:  make(map[string]int),
		targetByName:    make(map[string]int),
	}
}

func nameKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (c *Catalog) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// ── Building ────────────────────────────────────────────────────────

func (c *Catalog) AddCategory(id int, name string) {
	c.Categories[id] = &Category{ID: id, Name: name}
	c.categoryByName[nameKey(name)] = id
}

// AddKnowledge files k under its category. Categories must be added first; knowledge pointing at
// an unknown category is still indexed by name but belongs to no pool.
func (c *Catalog) AddKnowledge(k Knowledge) error {
	k.Finalize()
	c.Knowledge[k.ID] = &k
	c.knowledgeByName[nameKey(k.Name)] = k.ID

	cat, ok := c.Categories[k.CategoryID]
	if !ok {
		c.warnf("knowledge %d (%s): unknown category %d", k.ID, k.Name, k.CategoryID)
		return fmt.Errorf("%w: %d", ErrUnknownCategory, k.CategoryID)
	}
	cat.Items = append(cat.Items, k.ID)
	return nil
}

func (c *Catalog) AddConstellation(id int, layout solver.SlotLayout) error {
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("constellation %d: %w", id, err)
	}
	c.Constellations[id] = &Constellation{ID: id, Layout: layout}
	return nil
}

func (c *Catalog) AddTarget(t Target) {
	c.Targets[t.ID] = &t
	c.targetByName[nameKey(t.Name)] = t.ID
}

// ItemID converts a stored knowledge id, rejecting values that do not fit.
func ItemID(id int64) (solver.ItemID, error) {
	if id < 0 || id > int64(^solver.ItemID(0)) {
		return 0, fmt.Errorf("%w: knowledge id %d", ErrInvalidID, id)
	}
	return solver.ItemID(id), nil
}

// ── Lookups ─────────────────────────────────────────────────────────

func (c *Catalog) FindTarget(name string) (*Target, error) {
	id, ok := c.targetByName[nameKey(name)]
	if !ok {
		return nil, fmt.Errorf("target %q: %w", name, ErrNotFound)
	}
	return c.Targets[id], nil
}

func (c *Catalog) FindCategory(name string) (*Category, error) {
	id, ok := c.categoryByName[nameKey(name)]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return c.Categories[id], nil
}

// FindItem resolves a knowledge name, or a numeric id.
func (c *Catalog) FindItem(name string) (*Knowledge, error) {
	if id, ok := c.knowledgeByName[nameKey(name)]; ok {
		return c.Knowledge[id], nil
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(name), 10, 64); err == nil {
		if id, err := ItemID(n); err == nil {
			if k, ok := c.Knowledge[id]; ok {
				return k, nil
			}
		}
	}
	return nil, fmt.Errorf("knowledge %q: %w", name, ErrNotFound)
}

// Pool returns copies of every item in a category, in load order.
func (c *Catalog) Pool(categoryID int) ([]solver.Item, error) {
	cat, ok := c.Categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	pool := make([]solver.Item, 0, len(cat.Items))
	for _, id := range cat.Items {
		pool = append(pool, c.Knowledge[id].Item)
	}
	return pool, nil
}

func (c *Catalog) Layout(constellationID int) (solver.SlotLayout, error) {
	con, ok := c.Constellations[constellationID]
	if !ok {
		return solver.SlotLayout{}, fmt.Errorf("constellation %d: %w", constellationID, ErrNotFound)
	}
	return solver.SlotLayout{NumSlots: con.Layout.NumSlots, Order: slices.Clone(con.Layout.Order)}, nil
}

// Request assembles everything the solver needs for one target at one interest/favor level.
func (c *Catalog) Request(t *Target, interest, favor int, mode solver.Mode) (solver.Request, error) {
	pool, err := c.Pool(t.CategoryID)
	if err != nil {
		return solver.Request{}, fmt.Errorf("target %s: %w", t.Name, err)
	}
	layout, err := c.Layout(t.ConstellationID)
	if err != nil {
		return solver.Request{}, fmt.Errorf("target %s: %w", t.Name, err)
	}
	return solver.Request{
		Pool:     pool,
		Layout:   layout,
		Interest: interest,
		Favor:    favor,
		Mode:     mode,
	}, nil
}

// SortedTargets lists targets by id.
func (c *Catalog) SortedTargets() []*Target {
	out := slices.Collect(maps.Values(c.Targets))
	slices.SortFunc(out, func(a, b *Target) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ItemNames maps ids to knowledge names; unknown ids print as #id.
func (c *Catalog) ItemNames(ids []solver.ItemID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		if k, ok := c.Knowledge[id]; ok {
			names[i] = k.Name
		} else {
			names[i] = fmt.Sprintf("#%d", id)
		}
	}
	return names
}
