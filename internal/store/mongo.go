package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parlour/internal/model"
)

// Mongo stores one collection per entity in a MongoDB database.
type Mongo struct {
	client     *mongo.Client
	users      *mongo.Collection
	employees  *mongo.Collection
	attendance *mongo.Collection
	tasks      *mongo.Collection
}

type userDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Name                string             `bson:"name"`
	Email               string             `bson:"email"`
	Password            string             `bson:"password"`
	Role                string             `bson:"role"`
	FailedLoginAttempts int                `bson:"failedLoginAttempts"`
	LockUntil           *time.Time         `bson:"lockUntil"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

func (d userDoc) model() *model.Identity {
	return &model.Identity{
		ID:                  d.ID.Hex(),
		Name:                d.Name,
		Email:               d.Email,
		PasswordHash:        d.Password,
		Role:                model.Role(d.Role),
		FailedLoginAttempts: d.FailedLoginAttempts,
		LockUntil:           d.LockUntil,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type employeeDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Email         string             `bson:"email"`
	Phone         string             `bson:"phone"`
	Position      string             `bson:"position"`
	JoinDate      time.Time          `bson:"joinDate"`
	IsActive      bool               `bson:"isActive"`
	CurrentStatus string             `bson:"currentStatus"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d employeeDoc) model() *model.Employee {
	return &model.Employee{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Email:         d.Email,
		Phone:         d.Phone,
		Position:      d.Position,
		JoinDate:      d.JoinDate,
		IsActive:      d.IsActive,
		CurrentStatus: model.PresenceStatus(d.CurrentStatus),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type attendanceDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeID primitive.ObjectID `bson:"employeeId"`
	Action     string             `bson:"action"`
	Timestamp  time.Time          `bson:"timestamp"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	AssignedTo  primitive.ObjectID `bson:"assignedTo"`
	CreatedBy   primitive.ObjectID `bson:"createdBy"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     time.Time          `bson:"dueDate"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDoc) model() model.Task {
	return model.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		AssignedTo:  d.AssignedTo.Hex(),
		CreatedBy:   d.CreatedBy.Hex(),
		Status:      model.TaskStatus(d.Status),
		Priority:    model.Priority(d.Priority),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// NewMongo connects, pings and ensures the unique email indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{
		client:     client,
		users:      db.Collection("users"),
		employees:  db.Collection("employees"),
		attendance: db.Collection("attendancelogs"),
		tasks:      db.Collection("tasks"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	for _, coll := range []*mongo.Collection{m.users, m.employees} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}); err != nil {
			return fmt.Errorf("mongo: index %s.email: %w", coll.Name(), err)
		}
	}
	if _, err := m.attendance.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: -1}}}); err != nil {
		return fmt.Errorf("mongo: index attendancelogs.timestamp: %w", err)
	}
	return nil
}

// objectID parses a hex id; malformed ids cannot exist so they map to ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func mongoErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("mongo: %s: %w", op, err)
	}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// ---- Users ----

func (m *Mongo) CreateUser(ctx context.Context, u *model.Identity) error {
	now := time.Now().UTC()
	doc := userDoc{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := m.users.InsertOne(ctx, doc)
	if err != nil {
		return mongoErr("insert user", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, mongoErr("find user", err)
	}
	return doc.model(), nil
}

func (m *Mongo) UserByID(ctx context.Context, id string) (*model.Identity, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	if err := m.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr("find user", err)
	}
	return doc.model(), nil
}

func (m *Mongo) IncrementFailedLogins(ctx context.Context, id string) (int, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	update := bson.M{
		"$inc": bson.M{"failedLoginAttempts": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	var doc userDoc
	if err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, returnAfter).Decode(&doc); err != nil {
		return 0, mongoErr("increment failed logins", err)
	}
	return doc.FailedLoginAttempts, nil
}

func (m *Mongo) LockUser(ctx context.Context, id string, until time.Time) error {
	return m.updateUser(ctx, id, bson.M{"lockUntil": until.UTC()})
}

func (m *Mongo) ResetLoginState(ctx context.Context, id string) error {
	return m.updateUser(ctx, id, bson.M{"failedLoginAttempts": 0, "lockUntil": nil})
}

func (m *Mongo) updateUser(ctx context.Context, id string, set bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set["updatedAt"] = time.Now().UTC()
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return mongoErr("update user", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Employees ----

func (m *Mongo) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	cur, err := m.employees.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mongoErr("find employees", err)
	}
	var docs []employeeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode employees", err)
	}
	out := make([]model.Employee, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}

func (m *Mongo) EmployeeByID(ctx context.Context, id string) (*model.Employee, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc employeeDoc
	if err := m.employees.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr("find employee", err)
	}
	return doc.model(), nil
}

func (m *Mongo) CreateEmployee(ctx context.Context, e *model.Employee) error {
	now := time.Now().UTC()
	doc := employeeDoc{
		Name:          e.Name,
		Email:         e.Email,
		Phone:         e.Phone,
		Position:      e.Position,
		JoinDate:      e.JoinDate,
		IsActive:      e.IsActive,
		CurrentStatus: string(e.CurrentStatus),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res, err := m.employees.InsertOne(ctx, doc)
	if err != nil {
		return mongoErr("insert employee", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

func (m *Mongo) UpdateEmployee(ctx context.Context, id string, p model.EmployeePatch) (*model.Employee, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Position != nil {
		set["position"] = *p.Position
	}
	if p.JoinDate != nil {
		set["joinDate"] = *p.JoinDate
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if p.CurrentStatus != nil {
		set["currentStatus"] = string(*p.CurrentStatus)
	}
	return m.updateEmployee(ctx, id, set)
}

func (m *Mongo) SetEmployeeStatus(ctx context.Context, id string, status model.PresenceStatus) (*model.Employee, error) {
	return m.updateEmployee(ctx, id, bson.M{"currentStatus": string(status), "updatedAt": time.Now().UTC()})
}

func (m *Mongo) updateEmployee(ctx context.Context, id string, set bson.M) (*model.Employee, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc employeeDoc
	if err := m.employees.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, returnAfter).Decode(&doc); err != nil {
		return nil, mongoErr("update employee", err)
	}
	return doc.model(), nil
}

func (m *Mongo) DeleteEmployee(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := m.employees.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete employee", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Attendance ----

func (m *Mongo) AppendAttendance(ctx context.Context, e *model.AttendanceEntry) error {
	oid, err := objectID(e.EmployeeID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	doc := attendanceDoc{EmployeeID: oid, Action: string(e.Action), Timestamp: e.Timestamp, CreatedAt: now}
	res, err := m.attendance.InsertOne(ctx, doc)
	if err != nil {
		return mongoErr("insert attendance", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	e.CreatedAt = now
	return nil
}

func (m *Mongo) RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.attendance.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mongoErr("find attendance", err)
	}
	var docs []attendanceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode attendance", err)
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.EmployeeID)
	}
	refs, err := m.refs(ctx, m.employees, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.AttendanceEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.AttendanceEntry{
			ID:         d.ID.Hex(),
			EmployeeID: d.EmployeeID.Hex(),
			Employee:   refs[d.EmployeeID],
			Action:     model.PunchAction(d.Action),
			Timestamp:  d.Timestamp,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out, nil
}

// refs resolves ids in coll to name/email references, the equivalent of a populate.
func (m *Mongo) refs(ctx context.Context, coll *mongo.Collection, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.PersonRef, error) {
	out := make(map[primitive.ObjectID]*model.PersonRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	projection := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cur, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, mongoErr("populate "+coll.Name(), err)
	}
	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Email string             `bson:"email"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("populate "+coll.Name(), err)
	}
	for _, d := range docs {
		out[d.ID] = &model.PersonRef{ID: d.ID.Hex(), Name: d.Name, Email: d.Email}
	}
	return out, nil
}

// ---- Tasks ----

func (m *Mongo) populateTasks(ctx context.Context, docs []taskDoc) ([]model.Task, error) {
	assignees := make([]primitive.ObjectID, 0, len(docs))
	creators := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		assignees = append(assignees, d.AssignedTo)
		creators = append(creators, d.CreatedBy)
	}
	empRefs, err := m.refs(ctx, m.employees, assignees)
	if err != nil {
		return nil, err
	}
	userRefs, err := m.refs(ctx, m.users, creators)
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		t := d.model()
		t.Assignee = empRefs[d.AssignedTo]
		t.Creator = userRefs[d.CreatedBy]
		out = append(out, t)
	}
	return out, nil
}

func (m *Mongo) ListTasks(ctx context.Context) ([]model.Task, error) {
	cur, err := m.tasks.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mongoErr("find tasks", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode tasks", err)
	}
	return m.populateTasks(ctx, docs)
}

func (m *Mongo) TaskByID(ctx context.Context, id string) (*model.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc taskDoc
	if err := m.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr("find task", err)
	}
	return m.singleTask(ctx, doc)
}

func (m *Mongo) singleTask(ctx context.Context, doc taskDoc) (*model.Task, error) {
	tasks, err := m.populateTasks(ctx, []taskDoc{doc})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (m *Mongo) CreateTask(ctx context.Context, t *model.Task) error {
	assignee, err := objectID(t.AssignedTo)
	if err != nil {
		return err
	}
	creator, err := objectID(t.CreatedBy)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := taskDoc{
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  assignee,
		CreatedBy:   creator,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := m.tasks.InsertOne(ctx, doc)
	if err != nil {
		return mongoErr("insert task", err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID).Hex()
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (m *Mongo) UpdateTask(ctx context.Context, id string, p model.TaskPatch) (*model.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.AssignedTo != nil {
		assignee, err := objectID(*p.AssignedTo)
		if err != nil {
			return nil, err
		}
		set["assignedTo"] = assignee
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	var doc taskDoc
	if err := m.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, returnAfter).Decode(&doc); err != nil {
		return nil, mongoErr("update task", err)
	}
	return m.singleTask(ctx, doc)
}

func (m *Mongo) DeleteTask(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := m.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete task", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- lifecycle ----

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Purge(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{m.users, m.employees, m.attendance, m.tasks} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return mongoErr("purge "+coll.Name(), err)
		}
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
