package core

import (
	"github.com/google/uuid"
)

// SceneID is the stable registry key of a loaded scene. Callers mint one per
// scene instance instead of relying on pointer identity.
type SceneID uuid.UUID

// NilSceneID is never returned by NewSceneID.
var NilSceneID = SceneID(uuid.Nil)

func NewSceneID() SceneID {
	return SceneID(uuid.New())
}

// ParseSceneID parses the canonical uuid text form.
func ParseSceneID(s string) (SceneID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilSceneID, err
	}
	return SceneID(id), nil
}

func (id SceneID) String() string {
	return uuid.UUID(id).String()
}

func (id SceneID) IsNil() bool {
	return id == NilSceneID
}
