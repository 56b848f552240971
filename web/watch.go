package web

import (
	"net/http"

	"geoindex/session"

	"github.com/gorilla/websocket"
	"github.com/hauke96/sigolo/v2"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(request *http.Request) bool { return true },
}

// watch upgrades to a websocket and pushes the structural dump of the
// session to the client after every mutation, starting with the current
// state.
func (s *Server) watch(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		sigolo.Errorf("Error upgrading watch connection: %+v", err)
		return
	}
	defer conn.Close()

	observerId, updates := sess.Subscribe()
	defer sess.Unsubscribe(observerId)

	sigolo.Debugf("Observer %d watches session %s", observerId, sess.ID)

	var initial []byte
	err = sess.View(func(tree *session.Tree) error {
		initial = s.buildDump(sess.ID, tree)
		return nil
	})
	if err != nil {
		sigolo.Errorf("Error building initial tree dump: %+v", err)
		return
	}

	if err = conn.WriteMessage(websocket.TextMessage, initial); err != nil {
		sigolo.Debugf("Observer %d disconnected: %v", observerId, err)
		return
	}

	// The client never sends data, the read pump only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				// Session was dropped.
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, update); err != nil {
				sigolo.Debugf("Observer %d disconnected: %v", observerId, err)
				return
			}
		case <-closed:
			return
		}
	}
}
