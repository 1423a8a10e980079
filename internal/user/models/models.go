package models

import (
	"encoding/json"

	"middleoffice/pkg/oid"
)

// User is a plain directory record.
type User struct {
	ID       string `bson:"-"`
	Name     string `bson:"name"`
	Location string `bson:"location"`
	Title    string `bson:"title"`
}

// MarshalJSON renders the identifier as {"_id": {"$oid": ...}} and omits it
// when unset.
func (u User) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID       *oid.ObjectID `json:"_id,omitempty"`
		Name     string        `json:"name"`
		Location string        `json:"location"`
		Title    string        `json:"title"`
	}
	out := wire{Name: u.Name, Location: u.Location, Title: u.Title}
	if u.ID != "" {
		id := oid.ObjectID(u.ID)
		out.ID = &id
	}
	return json.Marshal(out)
}

// CreateUserRequest is the POST /api/user payload.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=256"`
	Location string `json:"location" validate:"required,max=256"`
	Title    string `json:"title" validate:"required,max=256"`
}

// CreateUserResult mirrors an insert-one acknowledgement.
type CreateUserResult struct {
	InsertedID oid.ObjectID `json:"insertedId"`
}
