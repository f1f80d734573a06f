package store

import (
	"context"
	"fmt"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
)

// Condition owner columns.
const (
	ownerPayload  = "payload_id"
	ownerTemplate = "template_id"
)

func conditionFromRow(row map[string]any) model.Condition {
	return model.Condition{
		ID:         asInt64(row["id"]),
		PayloadID:  asInt64(row["payload_id"]),
		TemplateID: asInt64(row["template_id"]),
		Field:      asString(row["field"]),
		Operator:   model.Operator(asString(row["operator"])),
		Value:      asString(row["value"]),
		Position:   asInt(row["position"]),
	}
}

// loadConditions returns the conditions of every owner in ownerIDs, keyed
// by owner id, each list in stored order.
func (s *Store) loadConditions(ctx context.Context, q Querier, owner string, ownerIDs []int64) (map[int64][]model.Condition, error) {
	out := make(map[int64][]model.Condition, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	pb := s.Dialect.NewParamBuilder()
	where := s.Dialect.InExpr(owner, pb, ownerIDs)
	rows, err := s.QueryRows(ctx, q,
		fmt.Sprintf("SELECT id, payload_id, template_id, field, operator, value, position FROM conditions WHERE %s ORDER BY position, id", where),
		pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("load conditions: %w", err)
	}
	for _, row := range rows {
		c := conditionFromRow(row)
		key := c.PayloadID
		if owner == ownerTemplate {
			key = c.TemplateID
		}
		out[key] = append(out[key], c)
	}
	return out, nil
}

func (s *Store) insertCondition(ctx context.Context, q Querier, owner string, ownerID int64, c *model.Condition) error {
	id, err := s.InsertID(ctx, q,
		fmt.Sprintf("INSERT INTO conditions (%s, field, operator, value, position) VALUES ($1, $2, $3, $4, $5) RETURNING id", owner),
		ownerID, c.Field, string(c.Operator), c.Value, c.Position)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// insertConditions writes a fresh list in order, numbering positions from 0.
func (s *Store) insertConditions(ctx context.Context, q Querier, owner string, ownerID int64, conds []model.Condition) ([]model.Condition, error) {
	out := make([]model.Condition, len(conds))
	for i, c := range conds {
		c.ID = 0
		c.Position = i
		if err := s.insertCondition(ctx, q, owner, ownerID, &c); err != nil {
			return nil, err
		}
		setOwner(&c, owner, ownerID)
		out[i] = c
	}
	return out, nil
}

// reconcileConditions brings the owner's stored conditions in line with
// submitted, deleting every existing row that is neither submitted nor in
// keepIDs.
func (s *Store) reconcileConditions(ctx context.Context, q Querier, owner string, ownerID int64, submitted []model.Condition, keepIDs []int64) error {
	existing, err := s.loadConditions(ctx, q, owner, []int64{ownerID})
	if err != nil {
		return err
	}
	diff := engine.ReconcileConditions(existing[ownerID], submitted, keepIDs)

	if len(diff.Delete) > 0 {
		pb := s.Dialect.NewParamBuilder()
		ownerPh := pb.Add(ownerID)
		in := s.Dialect.InExpr("id", pb, diff.Delete)
		if _, err := s.Exec(ctx, q,
			fmt.Sprintf("DELETE FROM conditions WHERE %s = %s AND %s", owner, ownerPh, in),
			pb.Params()...); err != nil {
			return fmt.Errorf("delete conditions: %w", err)
		}
	}
	for _, c := range diff.Update {
		if _, err := s.Exec(ctx, q,
			fmt.Sprintf("UPDATE conditions SET field = $1, operator = $2, value = $3 WHERE id = $4 AND %s = $5", owner),
			c.Field, string(c.Operator), c.Value, c.ID, ownerID); err != nil {
			return fmt.Errorf("update condition %d: %w", c.ID, err)
		}
	}
	for _, c := range diff.Insert {
		if err := s.insertCondition(ctx, q, owner, ownerID, &c); err != nil {
			return fmt.Errorf("insert condition: %w", err)
		}
	}
	return nil
}

func setOwner(c *model.Condition, owner string, ownerID int64) {
	if owner == ownerTemplate {
		c.TemplateID = ownerID
	} else {
		c.PayloadID = ownerID
	}
}
