package core

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	owners   = map[uuid.UUID]interface{}{}
	ownersMu sync.Mutex
)

// IdentifierAquireNewID registers owner under a fresh random id.
func IdentifierAquireNewID(owner interface{}) uuid.UUID {
	ownersMu.Lock()
	defer ownersMu.Unlock()

	for {
		id := uuid.New()
		if _, taken := owners[id]; !taken {
			owners[id] = owner
			return id
		}
	}
}

// IdentifierOwner returns whatever was registered under id.
func IdentifierOwner(id uuid.UUID) (interface{}, bool) {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	o, ok := owners[id]
	return o, ok
}

func IdentifierReleaseID(id uuid.UUID) error {
	ownersMu.Lock()
	defer ownersMu.Unlock()

	if _, ok := owners[id]; !ok {
		return errors.Newf("identifier_release_id: id '%s' is not registered. Nothing was done", id)
	}
	delete(owners, id)
	return nil
}
