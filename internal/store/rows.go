package store

import (
	"fmt"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

type categoryRow struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

type knowledgeRow struct {
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	FavorMin      int     `db:"favor_min"`
	FavorMax      int     `db:"favor_max"`
	Interest      float64 `db:"interest"`
	ComboDelay    int     `db:"combo_delay"`
	ComboLength   int     `db:"combo_length"`
	ComboInterest int     `db:"combo_interest"`
	ComboFavor    int     `db:"combo_favor"`
	CategoryID    int     `db:"category_id"`
}

type constellationRow struct {
	ID        int    `db:"id"`
	Slots     int    `db:"slots"`
	SlotOrder string `db:"slot_order"`
}

type targetRow struct {
	ID              int    `db:"id"`
	Name            string `db:"name"`
	ConstellationID int    `db:"constellation_id"`
	CategoryID      int    `db:"category_id"`
	InterestMin     int    `db:"interest_min"`
	InterestMax     int    `db:"interest_max"`
	FavorMin        int    `db:"favor_min"`
	FavorMax        int    `db:"favor_max"`
}

// buildCatalog assembles rows in dependency order. Knowledge with an unknown category becomes a
// catalog warning.
func buildCatalog(cats []categoryRow, know []knowledgeRow, cons []constellationRow, tgts []targetRow) (*catalog.Catalog, error) {
	c := catalog.New()
	for _, r := range cats {
		c.AddCategory(r.ID, r.Name)
	}
	for _, r := range know {
		id, err := catalog.ItemID(r.ID)
		if err != nil {
			return nil, err
		}
		_ = c.AddKnowledge(catalog.Knowledge{
			Item: solver.Item{
				ID:       id,
				Name:     r.Name,
				Interest: r.Interest,
				FavorMin: r.FavorMin,
				FavorMax: r.FavorMax,
				Combo: solver.ComboEffect{
					Delay:    r.ComboDelay,
					Duration: r.ComboLength,
					Interest: r.ComboInterest,
					Favor:    r.ComboFavor,
				},
			},
			CategoryID: r.CategoryID,
		})
	}
	for _, r := range cons {
		order, err := catalog.ParseIntArray(r.SlotOrder)
		if err != nil {
			return nil, fmt.Errorf("constellation %d: %w", r.ID, err)
		}
		if err := c.AddConstellation(r.ID, solver.SlotLayout{NumSlots: r.Slots, Order: order}); err != nil {
			return nil, err
		}
	}
	for _, r := range tgts {
		c.AddTarget(catalog.Target{
			ID:              r.ID,
			Name:            r.Name,
			CategoryID:      r.CategoryID,
			ConstellationID: r.ConstellationID,
			InterestMin:     r.InterestMin,
			InterestMax:     r.InterestMax,
			FavorMin:        r.FavorMin,
			FavorMax:        r.FavorMax,
		})
	}
	return c, nil
}

// catalogRows flattens c into rows sorted by id.
func catalogRows(c *catalog.Catalog) ([]categoryRow, []knowledgeRow, []constellationRow, []targetRow) {
	var (
		cats []categoryRow
		know []knowledgeRow
		cons []constellationRow
		tgts []targetRow
	)
	for _, cat := range sortedByID(c.Categories, func(v *catalog.Category) int { return v.ID }) {
		cats = append(cats, categoryRow{ID: cat.ID, Name: cat.Name})
	}
	for _, k := range sortedByID(c.Knowledge, func(v *catalog.Knowledge) int { return int(v.ID) }) {
		know = append(know, knowledgeRow{
			ID:            int64(k.ID),
			Name:          k.Name,
			FavorMin:      k.FavorMin,
			FavorMax:      k.FavorMax,
			Interest:      k.Interest,
			ComboDelay:    k.Combo.Delay,
			ComboLength:   k.Combo.Duration,
			ComboInterest: k.Combo.Interest,
			ComboFavor:    k.Combo.Favor,
			CategoryID:    k.CategoryID,
		})
	}
	for _, con := range sortedByID(c.Constellations, func(v *catalog.Constellation) int { return v.ID }) {
		cons = append(cons, constellationRow{ID: con.ID, Slots: con.Layout.NumSlots, SlotOrder: catalog.FormatIntArray(con.Layout.Order)})
	}
	for _, t := range sortedByID(c.Targets, func(v *catalog.Target) int { return v.ID }) {
		tgts = append(tgts, targetRow{
			ID:              t.ID,
			Name:            t.Name,
			ConstellationID: t.ConstellationID,
			CategoryID:      t.CategoryID,
			InterestMin:     t.InterestMin,
			InterestMax:     t.InterestMax,
			FavorMin:        t.FavorMin,
			FavorMax:        t.FavorMax,
		})
	}
	return cats, know, cons, tgts
}

func (r resultRow) result() (Result, error) {
	raw, err := catalog.ParseIntArray(r.Knowledge)
	if err != nil {
		return Result{}, err
	}
	items, err := parseItemIDs(raw)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Goal:    solver.Goal(r.Goal),
		Param:   r.Param,
		Best:    solver.Best{Items: items, Success: r.Success, EV: r.EV},
		Version: r.Version,
	}, nil
}
