package session

import (
	"testing"

	"geoindex/index"
	"geoindex/util"

	"github.com/pkg/errors"
)

func TestManager_createAndGet(t *testing.T) {
	manager := NewManager(9)

	s := manager.Create()
	util.AssertNotNil(t, s)
	util.AssertTrue(t, s.ID != "")
	util.AssertEqual(t, 1, manager.Len())

	got, err := manager.Get(s.ID)
	util.AssertNil(t, err)
	util.AssertTrue(t, got == s)
}

func TestManager_sessionsAreIndependent(t *testing.T) {
	manager := NewManager(9)
	a := manager.Create()
	b := manager.Create()

	err := a.Update(func(tree *Tree) error {
		return tree.Insert("only-in-a", index.Envelope{MinX: 0.1, MinY: 0.1, MaxX: 0.2, MaxY: 0.2})
	})
	util.AssertNil(t, err)

	err = b.View(func(tree *Tree) error {
		util.AssertEqual(t, 0, len(tree.Entries()))
		return nil
	})
	util.AssertNil(t, err)

	err = a.View(func(tree *Tree) error {
		util.AssertEqual(t, 1, len(tree.Entries()))
		return nil
	})
	util.AssertNil(t, err)
}

func TestManager_dropForgetsSession(t *testing.T) {
	manager := NewManager(9)
	s := manager.Create()

	util.AssertNil(t, manager.Drop(s.ID))
	util.AssertEqual(t, 0, manager.Len())

	_, err := manager.Get(s.ID)
	util.AssertNotNil(t, err)
	util.AssertTrue(t, errors.Is(err, ErrNotFound))

	util.AssertNotNil(t, manager.Drop(s.ID))
}

func TestSession_observersReceiveBroadcasts(t *testing.T) {
	manager := NewManager(9)
	s := manager.Create()

	id, updates := s.Subscribe()

	s.Broadcast([]byte("update-1"))
	util.AssertEqual(t, []byte("update-1"), <-updates)

	s.Unsubscribe(id)
	_, open := <-updates
	util.AssertFalse(t, open)
}

func TestSession_dropClosesObservers(t *testing.T) {
	manager := NewManager(9)
	s := manager.Create()

	_, updates := s.Subscribe()
	util.AssertNil(t, manager.Drop(s.ID))

	_, open := <-updates
	util.AssertFalse(t, open)
}
