package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/generate"
	"github.com/bretkramer/ethos-content-creator/internal/lmshttp"
)

const (
	pathLearningItems = "/api/learning_items"
	pathCards         = "/api/cards"
	pathUsers         = "/api/users"
	pathGroups        = "/api/groups"
	pathAttributes    = "/api/user_attributes"
	pathInvitations   = "/api/invitations"
)

// Publisher owns the plain CRUD calls that push generated drafts into the
// LMS. Discovery of the enrollments those calls eventually trigger lives
// in the enroll package.
type Publisher struct {
	api lmshttp.Doer
	log *logrus.Logger
}

func NewPublisher(api lmshttp.Doer, log *logrus.Logger) *Publisher {
	return &Publisher{api: api, log: log}
}

func (p *Publisher) createdID(raw json.RawMessage, what string) (string, error) {
	var rec map[string]interface{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("decode created %s: %w", what, err)
	}
	id := enroll.ExtractID(rec)
	if id == "" {
		return "", fmt.Errorf("created %s has no resolvable id", what)
	}
	return id, nil
}

func (p *Publisher) CreateLearningItem(ctx context.Context, d generate.ItemDraft, courseID string) (string, error) {
	body := map[string]interface{}{
		"title": d.Title,
		"type":  d.Kind,
	}
	if courseID != "" {
		body["course"] = courseID
	}
	raw, err := p.api.Post(ctx, pathLearningItems, body)
	if err != nil {
		return "", fmt.Errorf("create learning item %q: %w", d.Title, err)
	}
	return p.createdID(raw, "learning item")
}

func (p *Publisher) CreateCard(ctx context.Context, itemID string, c generate.CardDraft, position int) (string, error) {
	var blocks []map[string]interface{}
	if c.Body != "" {
		blocks = append(blocks, map[string]interface{}{"type": "text", "body": c.Body})
	}
	if c.Question != nil {
		opts := make([]map[string]interface{}, 0, len(c.Question.Options))
		for _, o := range c.Question.Options {
			opts = append(opts, map[string]interface{}{"id": o.ID, "text": o.Text, "correct": o.Correct})
		}
		blocks = append(blocks, map[string]interface{}{
			"type":    c.Question.Type,
			"prompt":  c.Question.Prompt,
			"options": opts,
		})
	}
	body := map[string]interface{}{
		"title":        c.Title,
		"learningItem": itemID,
		"position":     position,
		"content":      map[string]interface{}{"blocks": blocks},
	}
	raw, err := p.api.Post(ctx, pathCards, body)
	if err != nil {
		return "", fmt.Errorf("create card %q: %w", c.Title, err)
	}
	return p.createdID(raw, "card")
}

func (p *Publisher) CreateUser(ctx context.Context, u generate.UserDraft) (string, error) {
	raw, err := p.api.Post(ctx, pathUsers, map[string]interface{}{
		"username":  u.Username,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"password":  u.Password,
	})
	if err != nil {
		return "", fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return p.createdID(raw, "user")
}

func (p *Publisher) CreateGroup(ctx context.Context, name string, userIDs []string) (string, error) {
	raw, err := p.api.Post(ctx, pathGroups, map[string]interface{}{
		"name":  name,
		"users": userIDs,
	})
	if err != nil {
		return "", fmt.Errorf("create group %q: %w", name, err)
	}
	return p.createdID(raw, "group")
}

func (p *Publisher) SetAttribute(ctx context.Context, userID, key, value string) error {
	_, err := p.api.Post(ctx, pathAttributes, map[string]interface{}{
		"user":  userID,
		"key":   key,
		"value": value,
	})
	if err != nil {
		return fmt.Errorf("set attribute %s on %s: %w", key, userID, err)
	}
	return nil
}

// Invite asks the LMS to invite users into a course. Enrollment records
// materialize asynchronously afterwards.
func (p *Publisher) Invite(ctx context.Context, courseID string, userIDs []string) error {
	_, err := p.api.Post(ctx, pathInvitations, map[string]interface{}{
		"course": courseID,
		"users":  userIDs,
	})
	if err != nil {
		return fmt.Errorf("invite to course %s: %w", courseID, err)
	}
	return nil
}

// ConvertInvitations nudges pending invitations into enrollment records.
// Implements enroll.Converter; failures are the caller's to swallow.
func (p *Publisher) ConvertInvitations(ctx context.Context, courseID string, userIDs []string) error {
	_, err := p.api.Post(ctx, enroll.PathConvertInvites, map[string]interface{}{
		"course": courseID,
		"users":  userIDs,
	})
	return err
}
