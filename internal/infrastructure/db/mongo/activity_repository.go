package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

const activityCollection = "ticket_activity"

var _ ports.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository implements ports.ActivityRepository on a MongoDB
// collection.
type ActivityRepository struct {
	col *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(activityCollection)}
}

type activityDocument struct {
	TicketID   int64     `bson:"ticket_id"`
	Action     string    `bson:"action"`
	ActorID    string    `bson:"actor_id"`
	Changes    bson.M    `bson:"changes,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// EnsureIndexes creates the ticket_id/occurred_at index used by
// ListByTicket.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ticket_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create activity index: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Insert(ctx context.Context, a *domain.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toDocument(a, time.Now().UTC())); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByTicket returns the ticket's trail in the order it happened.
func (r *ActivityRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*domain.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"ticket_id": ticketID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}

	var docs []activityDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	out := make([]*domain.Activity, 0, len(docs))
	for i := range docs {
		out = append(out, fromDocument(&docs[i]))
	}
	return out, nil
}

func toDocument(a *domain.Activity, recordedAt time.Time) activityDocument {
	doc := activityDocument{
		TicketID:   a.TicketID,
		Action:     string(a.Action),
		ActorID:    a.ActorID,
		OccurredAt: a.OccurredAt.UTC(),
		RecordedAt: recordedAt,
	}
	if len(a.Changes) > 0 {
		doc.Changes = bson.M{}
		for k, v := range a.Changes {
			doc.Changes[k] = v
		}
	}
	return doc
}

func fromDocument(d *activityDocument) *domain.Activity {
	a := &domain.Activity{
		TicketID:   d.TicketID,
		Action:     domain.ActivityAction(d.Action),
		ActorID:    d.ActorID,
		OccurredAt: d.OccurredAt,
	}
	if len(d.Changes) > 0 {
		a.Changes = make(map[string]any, len(d.Changes))
		for k, v := range d.Changes {
			a.Changes[k] = v
		}
	}
	return a
}
