package repos

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/poppacare/poppa-backend/internal/db"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/schedule"
	"github.com/poppacare/poppa-backend/internal/types"
)

// MedicationRepo covers the Medication node, the TAKES schedule
// relationship, and the TOOK_MEDICATION intake history.
type MedicationRepo interface {
	Create(ctx context.Context, name, brandName, genericName string) (*types.Medication, error)
	Link(ctx context.Context, userID, medicationID string, sched types.Schedule) error
	ListForUser(ctx context.Context, userID string) ([]types.MedicationSchedule, error)
	UpdateSchedule(ctx context.Context, userID, medicationID string, sched types.Schedule) error
	Delete(ctx context.Context, userID, medicationID string) error
	Search(ctx context.Context, query string) ([]types.DrugResult, error)
	RecordIntake(ctx context.Context, userID, medicationID, date, scheduledTime, actualTime, status string) error
	Due(ctx context.Context, segments []schedule.Segment) ([]types.MedicationDue, error)
	UsersWithDoseInHalfDay(ctx context.Context, day string, afterMin, beforeMin int) ([]types.RelatedUser, error)
}

type medicationRepo struct {
	client *db.Neo4jClient
	log    *logger.Logger
}

func NewMedicationRepo(client *db.Neo4jClient, baseLog *logger.Logger) MedicationRepo {
	return &medicationRepo{client: client, log: baseLog.With("repo", "MedicationRepo")}
}

func (r *medicationRepo) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.client.Database,
	})
}

// Create merges by exact name so two users on the same drug share one node.
func (r *medicationRepo) Create(ctx context.Context, name, brandName, genericName string) (*types.Medication, error) {
	if name == "" {
		return nil, fmt.Errorf("medication name required")
	}
	cypher := `
MERGE (m:Medication {Name: $name})
ON CREATE SET m.id = randomUUID()
SET m.brandName = CASE WHEN $brandName <> '' THEN $brandName ELSE m.brandName END,
	m.genericName = CASE WHEN $genericName <> '' THEN $genericName ELSE m.genericName END
RETURN m.id AS id, m.Name AS Name, coalesce(m.brandName, '') AS brandName, coalesce(m.genericName, '') AS genericName
`
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"name":        name,
			"brandName":   brandName,
			"genericName": genericName,
		})
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}

	rec := result.(*neo4j.Record)
	get := func(key string) string {
		v, _ := rec.Get(key)
		s, _ := v.(string)
		return s
	}
	return &types.Medication{
		ID:          get("id"),
		Name:        get("Name"),
		BrandName:   get("brandName"),
		GenericName: get("genericName"),
	}, nil
}

// Link validates before any store round trip, then upserts TAKES wholesale:
// edits overwrite the whole relationship, there is no partial-field update.
func (r *medicationRepo) Link(ctx context.Context, userID, medicationID string, sched types.Schedule) error {
	if userID == "" || medicationID == "" {
		return fmt.Errorf("user id and medication id required")
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	return r.writeSchedule(ctx, `
MATCH (u:User {id: $userId})
MATCH (m:Medication {id: $medicationId})
MERGE (u)-[r:TAKES]->(m)
SET r.schedule = $schedule,
	r.pillsPerDose = $pillsPerDose,
	r.days = $days,
	r.frequency = $frequency,
	r.dosage = $dosage,
	r.updatedAt = datetime()
RETURN r
`, userID, medicationID, sched)
}

// UpdateSchedule only touches an existing TAKES relationship; a missing link
// is a not-found, not an implicit create.
func (r *medicationRepo) UpdateSchedule(ctx context.Context, userID, medicationID string, sched types.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	return r.writeSchedule(ctx, `
MATCH (u:User {id: $userId})-[r:TAKES]->(m:Medication {id: $medicationId})
SET r.schedule = $schedule,
	r.pillsPerDose = $pillsPerDose,
	r.days = $days,
	r.frequency = $frequency,
	r.dosage = $dosage,
	r.updatedAt = datetime()
RETURN r
`, userID, medicationID, sched)
}

func (r *medicationRepo) writeSchedule(ctx context.Context, cypher, userID, medicationID string, sched types.Schedule) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"userId":       userID,
			"medicationId": medicationID,
			"schedule":     sched.Schedule,
			"pillsPerDose": sched.PillsPerDose,
			"days":         sched.Days,
			"frequency":    sched.Frequency,
			"dosage":       sched.Dosage,
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
		return fmt.Errorf("write schedule: %w", err)
	}
	if ok, _ := result.(bool); !ok {
		return fmt.Errorf("user %s or medication %s not found", userID, medicationID)
	}
	return nil
}

func (r *medicationRepo) ListForUser(ctx context.Context, userID string) ([]types.MedicationSchedule, error) {
	cypher := `
MATCH (u:User {id: $userId})-[r:TAKES]->(m:Medication)
RETURN m.Name AS name, r.schedule AS schedule, r.days AS days, r.pillsPerDose AS pillsPerDose, r.dosage AS dosage
ORDER BY m.Name
`
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"userId": userID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}

	records := result.([]*neo4j.Record)
	out := make([]types.MedicationSchedule, 0, len(records))
	for _, rec := range records {
		nameRaw, _ := rec.Get("name")
		name, _ := nameRaw.(string)
		dosageRaw, _ := rec.Get("dosage")
		dosage, _ := dosageRaw.(string)
		schedRaw, _ := rec.Get("schedule")
		daysRaw, _ := rec.Get("days")
		pillsRaw, _ := rec.Get("pillsPerDose")
		out = append(out, types.MedicationSchedule{
			Name:         name,
			Schedule:     stringSlice(schedRaw),
			Days:         stringSlice(daysRaw),
			PillsPerDose: intSlice(pillsRaw),
			Dosage:       dosage,
		})
	}
	return out, nil
}

// Delete removes the user's TAKES link and intake history, then the
// Medication node itself when no other user still references it.
func (r *medicationRepo) Delete(ctx context.Context, userID, medicationID string) error {
	cypher := `
MATCH (u:User {id: $userId})-[r:TAKES]->(m:Medication {id: $medicationId})
DELETE r
WITH m
OPTIONAL MATCH (u2:User {id: $userId})-[h:TOOK_MEDICATION]->(m)
DELETE h
WITH m
OPTIONAL MATCH (m)<-[other:TAKES]-()
WITH m, count(other) AS usageCount
WHERE usageCount = 0
DELETE m
`
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"userId":       userID,
			"medicationId": medicationID,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// Search is the one canonical medication lookup: ranked substring match,
// exact name first, then name/brand/generic prefixes, then plain substring.
func (r *medicationRepo) Search(ctx context.Context, query string) ([]types.DrugResult, error) {
	cypher := `
MATCH (m:Medication)
WHERE toLower(m.Name) CONTAINS toLower($q)
	OR toLower(coalesce(m.brandName, '')) CONTAINS toLower($q)
	OR toLower(coalesce(m.genericName, '')) CONTAINS toLower($q)
WITH m, CASE
	WHEN toLower(m.Name) = toLower($q) THEN 0
	WHEN toLower(m.Name) STARTS WITH toLower($q) THEN 1
	WHEN toLower(coalesce(m.brandName, '')) STARTS WITH toLower($q) THEN 2
	WHEN toLower(coalesce(m.genericName, '')) STARTS WITH toLower($q) THEN 3
	ELSE 4
END AS rank
RETURN m.id AS id, m.Name AS Name, coalesce(m.brandName, '') AS brandName, coalesce(m.genericName, '') AS genericName
ORDER BY rank, m.Name
LIMIT 5
`
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"q": query})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("search medications: %w", err)
	}

	records := result.([]*neo4j.Record)
	out := make([]types.DrugResult, 0, len(records))
	for _, rec := range records {
		get := func(key string) string {
			v, _ := rec.Get(key)
			s, _ := v.(string)
			return s
		}
		out = append(out, types.DrugResult{
			ID:          get("id"),
			Name:        get("Name"),
			BrandName:   get("brandName"),
			GenericName: get("genericName"),
		})
	}
	return out, nil
}

// RecordIntake appends one TOOK_MEDICATION event; history is never updated
// in place.
func (r *medicationRepo) RecordIntake(ctx context.Context, userID, medicationID, date, scheduledTime, actualTime, status string) error {
	switch status {
	case types.IntakeTaken, types.IntakeMissed, types.IntakePending:
	default:
		return fmt.Errorf("invalid intake status %q", status)
	}

	cypher := `
MATCH (u:User {id: $userId})
MATCH (m:Medication {id: $medicationId})
CREATE (u)-[t:TOOK_MEDICATION {
	date: $date,
	scheduledTime: $scheduledTime,
	actualTime: $actualTime,
	status: $status
}]->(m)
RETURN t
`
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"userId":        userID,
			"medicationId":  medicationID,
			"date":          date,
			"scheduledTime": scheduledTime,
			"actualTime":    actualTime,
			"status":        status,
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
		return fmt.Errorf("record intake: %w", err)
	}
	if ok, _ := result.(bool); !ok {
		return fmt.Errorf("user %s or medication %s not found", userID, medicationID)
	}
	return nil
}

const dueCypher = `
MATCH (u:User)-[r:TAKES]->(m:Medication)
UNWIND r.schedule AS time
WITH u, m, r, time,
	toInteger(split(time, ':')[0]) * 60 + toInteger(split(time, ':')[1]) AS scheduleMinutes
WHERE scheduleMinutes > $afterMin
	AND scheduleMinutes < $beforeMin
RETURN DISTINCT u.id AS userId, m.Name AS medicationName, u.phone AS phone, time AS scheduledTime, r.days AS days
`

// Due runs the due-window query once per segment and unions the results,
// deduplicating across the midnight boundary. The store filters on the time
// band only; day recurrence is decided here via schedule.DayMatches so both
// queries share one membership rule.
func (r *medicationRepo) Due(ctx context.Context, segments []schedule.Segment) ([]types.MedicationDue, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	seen := make(map[string]struct{})
	var due []types.MedicationDue

	for _, seg := range segments {
		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, dueCypher, map[string]any{
				"afterMin":  seg.AfterMin,
				"beforeMin": seg.BeforeMin,
			})
			if err != nil {
				return nil, err
			}
			return res.Collect(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("due medications: %w", err)
		}

		for _, rec := range result.([]*neo4j.Record) {
			daysRaw, _ := rec.Get("days")
			if !schedule.DayMatches(stringSlice(daysRaw), seg.Day) {
				continue
			}
			get := func(key string) string {
				v, _ := rec.Get(key)
				s, _ := v.(string)
				return s
			}
			row := types.MedicationDue{
				UserID:         get("userId"),
				MedicationName: get("medicationName"),
				Phone:          get("phone"),
				ScheduledTime:  get("scheduledTime"),
			}
			dedupe := row.UserID + "|" + row.MedicationName + "|" + row.ScheduledTime
			if _, dup := seen[dedupe]; dup {
				continue
			}
			seen[dedupe] = struct{}{}
			due = append(due, row)
		}
	}
	return due, nil
}

// UsersWithDoseInHalfDay backs the twice-daily confirmation pass: every user
// with at least one dose scheduled on day inside the half-day minute band.
func (r *medicationRepo) UsersWithDoseInHalfDay(ctx context.Context, day string, afterMin, beforeMin int) ([]types.RelatedUser, error) {
	cypher := `
MATCH (u:User)-[r:TAKES]->(:Medication)
WHERE any(time IN r.schedule WHERE
	toInteger(split(time, ':')[0]) * 60 + toInteger(split(time, ':')[1]) > $afterMin
	AND toInteger(split(time, ':')[0]) * 60 + toInteger(split(time, ':')[1]) < $beforeMin)
RETURN u.id AS id, u.firstName AS firstName, u.lastName AS lastName, u.phone AS phone, r.days AS days
`
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"afterMin":  afterMin,
			"beforeMin": beforeMin,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("users with dose in half-day: %w", err)
	}

	records := result.([]*neo4j.Record)
	seen := make(map[string]struct{})
	users := make([]types.RelatedUser, 0, len(records))
	for _, rec := range records {
		daysRaw, _ := rec.Get("days")
		if !schedule.DayMatches(stringSlice(daysRaw), day) {
			continue
		}
		u := relatedUserFromRecord(rec)
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		users = append(users, u)
	}
	return users, nil
}
