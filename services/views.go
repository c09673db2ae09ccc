package services

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	viewsKey      = "views"
	favouritesKey = "favourites"
)

// ViewCounter keeps per-course view counts in the visitor's session.
// Nothing here touches durable storage: the counts live and die with
// the session, and each visitor only ever sees their own. The caller
// saves the session after mutating it.
type ViewCounter struct{}

func (ViewCounter) readViews(sess *session.Session) map[string]int {
	views := make(map[string]int)
	if raw, ok := sess.Get(viewsKey).([]byte); ok {
		// a corrupt session value resets the counters
		_ = json.Unmarshal(raw, &views)
	}
	return views
}

// RecordView increments the course's view count and returns the new
// value. The session is marked dirty via Set; the caller must Save.
func (vc ViewCounter) RecordView(sess *session.Session, courseID uint) int {
	views := vc.readViews(sess)
	key := strconv.FormatUint(uint64(courseID), 10)
	views[key]++
	raw, _ := json.Marshal(views)
	sess.Set(viewsKey, raw)
	return views[key]
}

// ViewCount returns the course's view count in this session, 0 if the
// course was never viewed.
func (vc ViewCounter) ViewCount(sess *session.Session, courseID uint) int {
	return vc.readViews(sess)[strconv.FormatUint(uint64(courseID), 10)]
}

// Favourites is the session-held bookmark list, a sibling of the view
// counter in the same per-visitor state.
func (ViewCounter) Favourites(sess *session.Session) []uint {
	var ids []uint
	if raw, ok := sess.Get(favouritesKey).([]byte); ok {
		_ = json.Unmarshal(raw, &ids)
	}
	return ids
}

func (vc ViewCounter) AddFavourite(sess *session.Session, courseID uint) {
	ids := vc.Favourites(sess)
	for _, id := range ids {
		if id == courseID {
			return
		}
	}
	ids = append(ids, courseID)
	raw, _ := json.Marshal(ids)
	sess.Set(favouritesKey, raw)
}

func (vc ViewCounter) RemoveFavourite(sess *session.Session, courseID uint) {
	ids := vc.Favourites(sess)
	kept := ids[:0]
	for _, id := range ids {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	raw, _ := json.Marshal(kept)
	sess.Set(favouritesKey, raw)
}
