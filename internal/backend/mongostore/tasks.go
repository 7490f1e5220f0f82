package mongostore

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tarevity/internal/service"
)

// TasksCollection is the collection that holds task documents.
const TasksCollection = "todos"

// MaxTitleLength is the longest title the store accepts.
const MaxTitleLength = 100

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description"`
	IsCompleted bool               `bson:"is_completed"`
	Priority    int                `bson:"priority"`
	Status      string             `bson:"status"`
	DueDate     *time.Time         `bson:"due_date"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d taskDoc) task() service.Task {
	return service.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		IsCompleted: d.IsCompleted,
		Priority:    service.Priority(d.Priority),
		Status:      service.Status(d.Status),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		UserID:      d.UserID,
	}
}

// TaskStore is a service.RecordStore over one user's task documents.
type TaskStore struct {
	coll   *mongo.Collection
	userID string
	now    func() time.Time
}

// NewTaskStore returns a store scoped to userID.
func NewTaskStore(db *mongo.Database, userID string) *TaskStore {
	return &TaskStore{
		coll:   db.Collection(TasksCollection),
		userID: userID,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskStore) List(ctx context.Context) ([]service.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"user_id": s.userID}, opts)
	if err != nil {
		return nil, wrapError("list", err)
	}
	defer cursor.Close(ctx)

	tasks := []service.Task{}
	for cursor.Next(ctx) {
		var d taskDoc
		if err := cursor.Decode(&d); err != nil {
			return nil, service.Wrap(service.KindMalformed, "list", err)
		}
		tasks = append(tasks, d.task())
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapError("list", err)
	}
	return tasks, nil
}

func (s *TaskStore) Create(ctx context.Context, in service.NewTask) (*service.Task, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	now := s.now()
	d := taskDoc{
		ID:          primitive.NewObjectID(),
		UserID:      s.userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		Priority:    int(in.Priority),
		Status:      string(normalizeStatus(in.Status, in.IsCompleted)),
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.Priority == 0 {
		d.Priority = int(service.PriorityMedium)
	}

	if _, err := s.coll.InsertOne(ctx, d); err != nil {
		return nil, wrapError("create", err)
	}
	t := d.task()
	return &t, nil
}

// Update reads the current document, applies patch with the same status
// coupling the client uses, and writes the full result back.
func (s *TaskStore) Update(ctx context.Context, id string, patch service.TaskPatch) (*service.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	patch = trimPatch(patch)
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, service.E(service.KindNotFound, "update", "task not found")
	}
	filter := bson.M{"_id": oid, "user_id": s.userID}

	var current taskDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&current); err != nil {
		return nil, wrapError("update", err)
	}
	next := patch.Apply(current.task())

	set := setFields(next, s.now())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated taskDoc
	if err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return nil, wrapError("update", err)
	}
	t := updated.task()
	return &t, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": s.userID})
	if err != nil {
		return 0, wrapError("delete", err)
	}
	return int(res.DeletedCount), nil
}

func setFields(t service.Task, now time.Time) bson.M {
	return bson.M{
		"title":        t.Title,
		"description":  t.Description,
		"is_completed": t.IsCompleted,
		"priority":     int(t.Priority),
		"status":       string(t.Status),
		"due_date":     t.DueDate,
		"updated_at":   now,
	}
}

func normalizeStatus(s service.Status, completed bool) service.Status {
	if completed {
		return service.StatusCompleted
	}
	if s == "" {
		return service.StatusActive
	}
	return s
}

func validateTitle(op, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.E(service.KindValidation, op, "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return service.E(service.KindValidation, op, "Title must be at most 100 characters")
	}
	return nil
}

func validateNew(in service.NewTask) error {
	if err := validateTitle("create", in.Title); err != nil {
		return err
	}
	if in.Priority != 0 && !in.Priority.Valid() {
		return service.E(service.KindValidation, "create", "Priority must be low, medium or high")
	}
	if in.Status != "" && !in.Status.Valid() {
		return service.E(service.KindValidation, "create", "Invalid status")
	}
	return nil
}

// trimPatch trims the title the way Create does. The caller's string is
// left alone.
func trimPatch(p service.TaskPatch) service.TaskPatch {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return p
}

func validatePatch(p service.TaskPatch) error {
	if p.Title != nil {
		if err := validateTitle("update", *p.Title); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return service.E(service.KindValidation, "update", "Priority must be low, medium or high")
	}
	if p.Status != nil && !p.Status.Valid() {
		return service.E(service.KindValidation, "update", "Invalid status")
	}
	return nil
}
