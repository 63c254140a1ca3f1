package catalog

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

// Load reads a catalog dump from disk. See Parse for the format.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from a JSON dump with top-level "categories", "knowledge",
// "constellations" and "targets" arrays. Field names follow the database columns. slot_order may
// be a JSON array or an array literal string.
func Parse(dataJSON string) (*Catalog, error) {
	if !gjson.Valid(dataJSON) {
		return nil, fmt.Errorf("invalid json")
	}
	c := New()

	gjson.Get(dataJSON, "categories").ForEach(func(_, v gjson.Result) bool {
		c.AddCategory(int(v.Get("id").Int()), v.Get("name").String())
		return true
	})

	var err error
	gjson.Get(dataJSON, "knowledge").ForEach(func(_, v gjson.Result) bool {
		var k Knowledge
		k, err = parseKnowledge(v)
		if err != nil {
			return false
		}
		// unknown categories are recorded as warnings
		_ = c.AddKnowledge(k)
		return true
	})
	if err != nil {
		return nil, err
	}

	gjson.Get(dataJSON, "constellations").ForEach(func(_, v gjson.Result) bool {
		id := int(v.Get("id").Int())
		var order []int
		order, err = parseSlotOrder(v.Get("slot_order"))
		if err != nil {
			err = fmt.Errorf("constellation %d: %w", id, err)
			return false
		}
		err = c.AddConstellation(id, solver.SlotLayout{NumSlots: int(v.Get("slots").Int()), Order: order})
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	gjson.Get(dataJSON, "targets").ForEach(func(_, v gjson.Result) bool {
		c.AddTarget(Target{
			ID:              int(v.Get("id").Int()),
			Name:            v.Get("name").String(),
			CategoryID:      int(v.Get("category_id").Int()),
			ConstellationID: int(v.Get("constellation_id").Int()),
			InterestMin:     int(v.Get("interest_min").Int()),
			InterestMax:     int(v.Get("interest_max").Int()),
			FavorMin:        int(v.Get("favor_min").Int()),
			FavorMax:        int(v.Get("favor_max").Int()),
		})
		return true
	})
	return c, nil
}

func parseKnowledge(v gjson.Result) (Knowledge, error) {
	id, err := ItemID(v.Get("id").Int())
	if err != nil {
		return Knowledge{}, err
	}
	return Knowledge{
		Item: solver.Item{
			ID:       id,
			Name:     v.Get("name").String(),
			Interest: v.Get("interest").Float(),
			FavorMin: int(v.Get("favor_min").Int()),
			FavorMax: int(v.Get("favor_max").Int()),
			Combo: solver.ComboEffect{
				Delay:    int(v.Get("combo_delay").Int()),
				Duration: int(v.Get("combo_length").Int()),
				Interest: int(v.Get("combo_interest").Int()),
				Favor:    int(v.Get("combo_favor").Int()),
			},
		},
		CategoryID: int(v.Get("category_id").Int()),
	}, nil
}

func parseSlotOrder(v gjson.Result) ([]int, error) {
	switch {
	case v.IsArray():
		var order []int
		v.ForEach(func(_, s gjson.Result) bool {
			order = append(order, int(s.Int()))
			return true
		})
		return order, nil
	case v.Type == gjson.String:
		return ParseIntArray(v.String())
	case !v.Exists():
		return nil, nil
	}
	return nil, fmt.Errorf("slot_order: unexpected %s", v.Type)
}
