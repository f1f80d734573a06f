package store

import (
	"context"
	"database/sql"
	"fmt"

	"webhook-bot/internal/model"
)

const templateColumns = "id, user_id, name, content_type, content, params, status"

func templateFromRow(row map[string]any) model.Template {
	return model.Template{
		ID:          asInt64(row["id"]),
		UserID:      asInt64(row["user_id"]),
		Name:        asString(row["name"]),
		ContentType: model.ContentType(asString(row["content_type"])),
		Content:     asString(row["content"]),
		Params:      asString(row["params"]),
		Status:      model.TemplateStatus(asString(row["status"])),
		Conditions:  []model.Condition{},
	}
}

// TemplateFilter narrows ListTemplates. Zero values mean no restriction.
type TemplateFilter struct {
	// VisibleTo limits results to the user's own templates plus public ones.
	VisibleTo int64
	Status    model.TemplateStatus
}

func (s *Store) ListTemplates(ctx context.Context, f TemplateFilter) ([]model.Template, error) {
	pb := s.Dialect.NewParamBuilder()
	where := "1=1"
	if f.VisibleTo != 0 {
		where += fmt.Sprintf(" AND (user_id = %s OR status = %s)", pb.Add(f.VisibleTo), pb.Add(string(model.StatusPublic)))
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = %s", pb.Add(string(f.Status)))
	}

	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+templateColumns+" FROM templates WHERE "+where+" ORDER BY id", pb.Params()...)
	if err != nil {
		return nil, err
	}

	templates := make([]model.Template, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		t := templateFromRow(row)
		templates = append(templates, t)
		ids = append(ids, t.ID)
	}
	conds, err := s.loadConditions(ctx, s.DB, ownerTemplate, ids)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if c, ok := conds[templates[i].ID]; ok {
			templates[i].Conditions = c
		}
	}
	return templates, nil
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	return s.getTemplate(ctx, s.DB, id)
}

func (s *Store) getTemplate(ctx context.Context, q Querier, id int64) (*model.Template, error) {
	row, err := s.QueryRow(ctx, q, "SELECT "+templateColumns+" FROM templates WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	t := templateFromRow(row)
	conds, err := s.loadConditions(ctx, q, ownerTemplate, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	if c, ok := conds[t.ID]; ok {
		t.Conditions = c
	}
	return &t, nil
}

func (s *Store) TemplateNameExists(ctx context.Context, userID int64, name string) (bool, error) {
	row, err := s.QueryRow(ctx, s.DB,
		"SELECT COUNT(*) AS n FROM templates WHERE user_id = $1 AND name = $2", userID, name)
	if err != nil {
		return false, err
	}
	return asInt64(row["n"]) > 0, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t *model.Template) error {
	if t.Status == "" {
		t.Status = model.StatusPrivate
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.InsertID(ctx, tx,
			`INSERT INTO templates (user_id, name, content_type, content, params, status)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			t.UserID, t.Name, string(t.ContentType), t.Content, t.Params, string(t.Status))
		if err != nil {
			return err
		}
		t.ID = id
		conds, err := s.insertConditions(ctx, tx, ownerTemplate, id, t.Conditions)
		if err != nil {
			return fmt.Errorf("insert conditions: %w", err)
		}
		t.Conditions = conds
		return nil
	})
}

// UpdateTemplate rewrites name and content and reconciles conditions the
// same way UpdatePayload does. Status is changed only through SetTemplateStatus.
func (s *Store) UpdateTemplate(ctx context.Context, t *model.Template, keepIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.Exec(ctx, tx,
			"UPDATE templates SET name = $1, content_type = $2, content = $3, params = $4 WHERE id = $5",
			t.Name, string(t.ContentType), t.Content, t.Params, t.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := s.reconcileConditions(ctx, tx, ownerTemplate, t.ID, t.Conditions, keepIDs); err != nil {
			return err
		}
		stored, err := s.getTemplate(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		*t = *stored
		return nil
	})
}

func (s *Store) SetTemplateStatus(ctx context.Context, id int64, status model.TemplateStatus) error {
	n, err := s.Exec(ctx, s.DB, "UPDATE templates SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	n, err := s.Exec(ctx, s.DB, "DELETE FROM templates WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
