// Package oid renders MongoDB object identifiers in extended JSON.
package oid

import "encoding/json"

// ObjectID is a 24-hex identifier that marshals as {"$oid": "<hex>"}.
type ObjectID string

func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$oid": string(id)})
}
