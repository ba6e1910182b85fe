package types

const (
	RoleElder     = "Elder"
	RoleCaretaker = "Caretaker"
)

// User mirrors the User graph node. ID is externally issued (Clerk) and
// opaque to this service. Phone may be empty until the identity provider
// delivers it; once set it is the canonical lookup key for webhook traffic.
type User struct {
	ID                 string `json:"id"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Role               string `json:"role,omitempty"`
	Sex                string `json:"sex,omitempty"`
	Age                int64  `json:"age,omitempty"`
	Language           string `json:"language"`
	PendingPhoneUpdate bool   `json:"pendingPhoneUpdate,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

// UserUpdate carries the mutable profile fields for a wholesale-style
// update. Nil pointers are left untouched.
type UserUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	Age       *int64  `json:"age,omitempty"`
	Language  *string `json:"language,omitempty"`
}

// RelatedUser is the trimmed profile embedded in metadata bundles.
type RelatedUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// UserMetadata is the context bundle handed to the external agent: the
// user's profile, care relationships in both directions, and the current
// medication schedules.
type UserMetadata struct {
	Profile       User                 `json:"profile"`
	Relationships UserRelationships    `json:"relationships"`
	Medications   []MedicationSchedule `json:"medications"`
}

type UserRelationships struct {
	Caretakers []RelatedUser `json:"caretakers"`
	Elders     []RelatedUser `json:"elders"`
}
