package session

import (
	"encoding/gob"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const flashKey = "flashes"

// Flash is a one-shot notice rendered on the next page view.
type Flash struct {
	Category string // success, info, warning, danger
	Message  string
}

func init() {
	// Session values cross the fiber.Storage boundary gob-encoded.
	gob.Register([]Flash{})
}

// AddFlash queues a notice on the session. The caller is responsible for
// saving the session.
func AddFlash(sess *session.Session, category, message string) {
	flashes, _ := sess.Get(flashKey).([]Flash)
	flashes = append(flashes, Flash{Category: category, Message: message})
	sess.Set(flashKey, flashes)
}

// PopFlashes returns queued notices and clears them.
func PopFlashes(sess *session.Session) []Flash {
	flashes, _ := sess.Get(flashKey).([]Flash)
	if len(flashes) > 0 {
		sess.Delete(flashKey)
	}
	return flashes
}
