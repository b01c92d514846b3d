// Package binding applies a template's type relationships to a set of alerts
// and derives those relationships back from a saved tree.
package binding

import "github.com/mr1hm/go-alert-relationships/internal/models"

type siteType struct {
	site   string
	typeID string
}

// Apply returns a copy of alerts with ParentID assigned from bindings. An
// alert's parent is the first other alert on the same site whose type is
// bound as a parent of its type; parent types are tried in binding order.
// Alerts without a match become top-level. Type loops are left for the tree
// builder to break.
func Apply(bindings []models.Binding, alerts []models.FlatAlert) []models.FlatAlert {
	parentTypes := make(map[string][]string)
	for _, b := range bindings {
		parentTypes[b.ChildTypeID] = append(parentTypes[b.ChildTypeID], b.ParentTypeID)
	}

	// the first two alerts per (site, type) are enough to find an alert
	// other than the one being placed
	candidates := make(map[siteType][]int)
	for i, a := range alerts {
		key := siteType{site: a.Site, typeID: a.AlertTypeID}
		if len(candidates[key]) < 2 {
			candidates[key] = append(candidates[key], i)
		}
	}

	out := make([]models.FlatAlert, len(alerts))
	for i, a := range alerts {
		a.ParentID = ""
		for _, pt := range parentTypes[a.AlertTypeID] {
			if j, ok := firstOther(candidates[siteType{site: a.Site, typeID: pt}], i); ok {
				a.ParentID = alerts[j].ID
				break
			}
		}
		out[i] = a
	}

	return out
}

func firstOther(indexes []int, self int) (int, bool) {
	for _, j := range indexes {
		if j != self {
			return j, true
		}
	}
	return 0, false
}

// Derive collects the distinct parent→child type pairs present in a flat
// list, in order of first appearance. Edges touching alerts without a type
// are skipped.
func Derive(alerts []models.FlatAlert) []models.Binding {
	types := make(map[string]string, len(alerts))
	for _, a := range alerts {
		if _, ok := types[a.ID]; !ok {
			types[a.ID] = a.AlertTypeID
		}
	}

	seen := make(map[models.Binding]struct{})
	out := []models.Binding{}
	for _, a := range alerts {
		if a.ParentID == "" || a.AlertTypeID == "" {
			continue
		}
		parentType := types[a.ParentID]
		if parentType == "" {
			continue
		}
		b := models.Binding{ParentTypeID: parentType, ChildTypeID: a.AlertTypeID}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}

	return out
}

// Merge returns existing followed by the pairs in derived it does not
// already hold. Existing order is kept since Apply tries parent types in
// binding order.
func Merge(existing, derived []models.Binding) []models.Binding {
	seen := make(map[models.Binding]struct{}, len(existing)+len(derived))
	out := make([]models.Binding, 0, len(existing)+len(derived))
	for _, list := range [][]models.Binding{existing, derived} {
		for _, b := range list {
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}
