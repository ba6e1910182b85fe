package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/poppacare/poppa-backend/internal/db"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/types"
)

// UserRepo is the graph-side user contract. Lookups that find nothing
// return (nil, nil); callers branch on presence rather than catching errors.
type UserRepo interface {
	Create(ctx context.Context, user *types.User) (*types.User, error)
	GetByID(ctx context.Context, userID string) (*types.User, error)
	GetByPhone(ctx context.Context, phone string) (*types.User, error)
	Update(ctx context.Context, userID string, update types.UserUpdate) (*types.User, error)
	Delete(ctx context.Context, userID string) error
	CreateCaresFor(ctx context.Context, caretakerID, elderID string) error
	GetCaretakerElders(ctx context.Context, caretakerID string) ([]types.RelatedUser, error)
	GetMetadataByPhone(ctx context.Context, phone string) (*types.UserMetadata, error)
}

type userRepo struct {
	client *db.Neo4jClient
	log    *logger.Logger
}

func NewUserRepo(client *db.Neo4jClient, baseLog *logger.Logger) UserRepo {
	return &userRepo{client: client, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.client.Database,
	})
}

// Create merges by id so repeated onboarding calls are idempotent, and adds
// the role label when the role is already known. The phone property is only
// set when non-empty: the phone uniqueness constraint must not collide on
// users still waiting for their number from the identity provider.
func (r *userRepo) Create(ctx context.Context, user *types.User) (*types.User, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("user id required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if user.Language == "" {
		user.Language = "en"
	}

	props := map[string]any{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"role":      user.Role,
		"sex":       user.Sex,
		"age":       user.Age,
		"language":  user.Language,
		"updatedAt": now,
	}

	cypher := `
MERGE (u:User {id: $id})
ON CREATE SET u.createdAt = $createdAt
SET u += $props
FOREACH (x IN CASE WHEN $role = 'Elder' THEN [1] ELSE [] END | SET u:Elder)
FOREACH (x IN CASE WHEN $role = 'Caretaker' THEN [1] ELSE [] END | SET u:Caretaker)
FOREACH (x IN CASE WHEN $phone <> '' THEN [1] ELSE [] END | SET u.phone = $phone)
FOREACH (x IN CASE WHEN $phone = '' THEN [1] ELSE [] END | SET u.pendingPhoneUpdate = true)
RETURN u
`

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"id":        user.ID,
			"props":     props,
			"role":      user.Role,
			"phone":     user.Phone,
			"createdAt": now,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return userFromRecord(result.(*neo4j.Record), "u")
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*types.User, error) {
	return r.getOne(ctx, `MATCH (u:User {id: $val}) RETURN u`, userID)
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*types.User, error) {
	return r.getOne(ctx, `MATCH (u:User {phone: $val}) RETURN u`, phone)
}

func (r *userRepo) getOne(ctx context.Context, cypher, val string) (*types.User, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"val": val})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return records[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return userFromRecord(result.(*neo4j.Record), "u")
}

// Update rewrites the provided fields and re-derives the role labels, since
// a role change must move the node between Elder and Caretaker.
func (r *userRepo) Update(ctx context.Context, userID string, update types.UserUpdate) (*types.User, error) {
	props := map[string]any{
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	setString := func(key string, v *string) {
		if v != nil {
			props[key] = *v
		}
	}
	setString("firstName", update.FirstName)
	setString("lastName", update.LastName)
	setString("email", update.Email)
	setString("phone", update.Phone)
	setString("role", update.Role)
	setString("sex", update.Sex)
	setString("language", update.Language)
	if update.Age != nil {
		props["age"] = *update.Age
	}

	role := ""
	if update.Role != nil {
		role = *update.Role
	}

	cypher := `
MATCH (u:User {id: $userId})
SET u += $props
WITH u
FOREACH (x IN CASE WHEN $role <> '' THEN [1] ELSE [] END |
	REMOVE u:Elder
	REMOVE u:Caretaker
)
FOREACH (x IN CASE WHEN $role = 'Elder' THEN [1] ELSE [] END | SET u:Elder)
FOREACH (x IN CASE WHEN $role = 'Caretaker' THEN [1] ELSE [] END | SET u:Caretaker)
RETURN u
`

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"userId": userID,
			"props":  props,
			"role":   role,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return records[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return userFromRecord(result.(*neo4j.Record), "u")
}

// Delete detaches and removes the user node with every relationship hanging
// off it (conversations included).
func (r *userRepo) Delete(ctx context.Context, userID string) error {
	cypher := `
MATCH (u:User {id: $userId})
OPTIONAL MATCH (u)-[:HAS_CONVERSATION]->(c:Conversation)
DETACH DELETE c, u
`
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"userId": userID})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *userRepo) CreateCaresFor(ctx context.Context, caretakerID, elderID string) error {
	cypher := `
MATCH (c:User:Caretaker {id: $caretakerId})
MATCH (e:User:Elder {id: $elderId})
MERGE (c)-[r:CARES_FOR]->(e)
ON CREATE SET r.createdAt = datetime()
RETURN r
`
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"caretakerId": caretakerID,
			"elderId":     elderID,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return fmt.Errorf("create cares_for: %w", err)
	}
	if ok, _ := result.(bool); !ok {
		return fmt.Errorf("caretaker %s or elder %s not found", caretakerID, elderID)
	}
	return nil
}

func (r *userRepo) GetCaretakerElders(ctx context.Context, caretakerID string) ([]types.RelatedUser, error) {
	cypher := `
MATCH (c:User:Caretaker {id: $caretakerId})-[:CARES_FOR]->(e:User:Elder)
RETURN e.id AS id, e.firstName AS firstName, e.lastName AS lastName, e.phone AS phone
`
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"caretakerId": caretakerID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get caretaker elders: %w", err)
	}

	records := result.([]*neo4j.Record)
	elders := make([]types.RelatedUser, 0, len(records))
	for _, rec := range records {
		elders = append(elders, relatedUserFromRecord(rec))
	}
	return elders, nil
}

// GetMetadataByPhone assembles the agent-facing context bundle: profile,
// caretakers, elders, and medication schedules in one round trip.
func (r *userRepo) GetMetadataByPhone(ctx context.Context, phone string) (*types.UserMetadata, error) {
	cypher := `
MATCH (u:User {phone: $phone})
OPTIONAL MATCH (c:User:Caretaker)-[:CARES_FOR]->(u)
OPTIONAL MATCH (u)-[:CARES_FOR]->(e:User:Elder)
OPTIONAL MATCH (u)-[t:TAKES]->(m:Medication)
RETURN u,
	collect(DISTINCT {id: c.id, firstName: c.firstName, lastName: c.lastName, phone: c.phone}) AS caretakers,
	collect(DISTINCT {id: e.id, firstName: e.firstName, lastName: e.lastName, phone: e.phone}) AS elders,
	collect(DISTINCT {name: m.Name, schedule: t.schedule, days: t.days, pillsPerDose: t.pillsPerDose, dosage: t.dosage}) AS medications
`
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"phone": phone})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return records[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("get user metadata: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	rec := result.(*neo4j.Record)
	user, err := userFromRecord(rec, "u")
	if err != nil {
		return nil, err
	}

	meta := &types.UserMetadata{
		Profile: *user,
		Relationships: types.UserRelationships{
			Caretakers: relatedUsersFromValue(rec, "caretakers"),
			Elders:     relatedUsersFromValue(rec, "elders"),
		},
		Medications: medicationSchedulesFromValue(rec, "medications"),
	}
	return meta, nil
}

// ---------- record decoding ----------

func userFromRecord(rec *neo4j.Record, key string) (*types.User, error) {
	raw, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("record missing %q", key)
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("record value %q is not a node", key)
	}
	props := node.Props
	return &types.User{
		ID:                 stringProp(props, "id"),
		FirstName:          stringProp(props, "firstName"),
		LastName:           stringProp(props, "lastName"),
		Email:              stringProp(props, "email"),
		Phone:              stringProp(props, "phone"),
		Role:               stringProp(props, "role"),
		Sex:                stringProp(props, "sex"),
		Age:                intProp(props, "age"),
		Language:           stringPropDefault(props, "language", "en"),
		PendingPhoneUpdate: boolProp(props, "pendingPhoneUpdate"),
		CreatedAt:          stringProp(props, "createdAt"),
		UpdatedAt:          stringProp(props, "updatedAt"),
	}, nil
}

func relatedUserFromRecord(rec *neo4j.Record) types.RelatedUser {
	get := func(key string) string {
		v, _ := rec.Get(key)
		s, _ := v.(string)
		return s
	}
	return types.RelatedUser{
		ID:        get("id"),
		FirstName: get("firstName"),
		LastName:  get("lastName"),
		Phone:     get("phone"),
	}
}

// relatedUsersFromValue decodes a collect() of maps, dropping the all-null
// entry an OPTIONAL MATCH with no hits produces.
func relatedUsersFromValue(rec *neo4j.Record, key string) []types.RelatedUser {
	raw, ok := rec.Get(key)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]types.RelatedUser, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		first, _ := m["firstName"].(string)
		last, _ := m["lastName"].(string)
		phone, _ := m["phone"].(string)
		out = append(out, types.RelatedUser{ID: id, FirstName: first, LastName: last, Phone: phone})
	}
	return out
}

func medicationSchedulesFromValue(rec *neo4j.Record, key string) []types.MedicationSchedule {
	raw, ok := rec.Get(key)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]types.MedicationSchedule, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		dosage, _ := m["dosage"].(string)
		out = append(out, types.MedicationSchedule{
			Name:         name,
			Schedule:     stringSlice(m["schedule"]),
			Days:         stringSlice(m["days"]),
			PillsPerDose: intSlice(m["pillsPerDose"]),
			Dosage:       dosage,
		})
	}
	return out
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func stringPropDefault(props map[string]any, key, def string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return def
}

func intProp(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func boolProp(props map[string]any, key string) bool {
	v, _ := props[key].(bool)
	return v
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intSlice(raw any) []int64 {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case int64:
			out = append(out, v)
		case float64:
			out = append(out, int64(v))
		}
	}
	return out
}
