package engine

import "webhook-bot/internal/model"

// ConditionDiff is the set of writes that turns an owner's stored conditions
// into the submitted list.
type ConditionDiff struct {
	Insert []model.Condition
	Update []model.Condition
	Delete []int64
}

// Empty reports whether the diff has nothing to apply.
func (d ConditionDiff) Empty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// ReconcileConditions compares the stored conditions of one owner with an
// update request. Existing ids that are neither in keepIDs nor submitted are
// deleted; submitted rows without an id are inserted after the current last
// position; submitted rows with a known id are updated in place. Submitted
// ids that do not belong to the owner are ignored.
func ReconcileConditions(existing, submitted []model.Condition, keepIDs []int64) ConditionDiff {
	byID := make(map[int64]model.Condition, len(existing))
	next := 0
	for _, c := range existing {
		byID[c.ID] = c
		if c.Position >= next {
			next = c.Position + 1
		}
	}

	keep := make(map[int64]bool, len(keepIDs)+len(submitted))
	for _, id := range keepIDs {
		keep[id] = true
	}

	var diff ConditionDiff
	for _, c := range submitted {
		if c.ID == 0 {
			c.Position = next
			next++
			diff.Insert = append(diff.Insert, c)
			continue
		}
		cur, ok := byID[c.ID]
		if !ok {
			continue
		}
		keep[c.ID] = true
		c.Position = cur.Position
		c.PayloadID = cur.PayloadID
		c.TemplateID = cur.TemplateID
		diff.Update = append(diff.Update, c)
	}

	for _, c := range existing {
		if !keep[c.ID] {
			diff.Delete = append(diff.Delete, c.ID)
		}
	}
	return diff
}
