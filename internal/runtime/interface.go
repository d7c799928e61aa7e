// Package runtime declares the boundary contracts of the external
// networking/engine runtime this service is built on. The transport, entity
// instantiation and scene primitives live behind these interfaces; the gateway
// provides the production implementations.
package runtime

import "github.com/lobbyd/lobbyd/internal/model"

// PrefabRef names an instantiable entity template.
type PrefabRef string

// SceneRef names a loadable scene.
type SceneRef string

// EntityHandle identifies a spawned entity instance.
type EntityHandle uint64

// LoadMode selects how a scene load composes with already-loaded scenes.
type LoadMode string

const (
	LoadSingle   LoadMode = "single"
	LoadAdditive LoadMode = "additive"
)

// EntityLifecycle is the entity instantiation/placement primitive.
type EntityLifecycle interface {
	Instantiate(prefab PrefabRef, roomID model.RoomID, owner model.SessionID) (EntityHandle, error)
	Destroy(handle EntityHandle) error
	SetObserverVisible(handle EntityHandle, session model.SessionID, visible bool) error
}

// ConnectionInfo exposes connection state owned by the transport.
type ConnectionInfo interface {
	IsConnected(session model.SessionID) bool
	ConnectedSessions() []model.SessionID
}

// SceneLoader is the scene-transition primitive, addressed to explicit
// session sets.
type SceneLoader interface {
	LoadForSessions(scene SceneRef, mode LoadMode, sessions []model.SessionID) error
	UnloadForSessions(scene SceneRef, sessions []model.SessionID) error
}
