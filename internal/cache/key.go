// Package cache holds the client's fetched collections and implements the
// optimistic-mutation flow: cancel competing reads, snapshot, splice a
// provisional entity, then invalidate on success or restore on failure.
//
// Keys are typed (tenant x resource kind x page) instead of convention-based
// strings, so "invalidate everything this mutation touches" is a prefix
// operation rather than a naming discipline.
package cache

import (
	"strings"

	"github.com/google/uuid"
)

// Resource is a cached resource kind.
type Resource string

const (
	ResourceRuns      Resource = "runs"
	ResourceProspects Resource = "prospects"
	ResourceMessages  Resource = "messages"
	ResourceMembers   Resource = "members"
	ResourceChannels  Resource = "channels"
	ResourceUsage     Resource = "usage"
)

// Key identifies one cached collection: a resource kind for a tenant under a
// pagination (or sub-resource) variant. Page "" is the unpaginated default.
type Key struct {
	OrgID    string
	Resource Resource
	Page     string
}

// Prefix matches every page variant of a resource for a tenant. A logical
// collection cached under several page keys is snapshotted and restored as a
// unit through its prefix.
type Prefix struct {
	OrgID    string
	Resource Resource
}

// Matches reports whether k falls under the prefix.
func (p Prefix) Matches(k Key) bool {
	return k.OrgID == p.OrgID && k.Resource == p.Resource
}

// Prefix returns the key's prefix.
func (k Key) Prefix() Prefix {
	return Prefix{OrgID: k.OrgID, Resource: k.Resource}
}

// tempIDPrefix marks provisional ids so they are distinguishable from server ids.
const tempIDPrefix = "tmp_"

// TempID returns a fresh provisional entity id.
func TempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a provisional id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
