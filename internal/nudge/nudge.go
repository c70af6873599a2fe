// Package nudge serves the "Nudge of the Day": a rotating suggestion for a
// small act of neighborly help.
package nudge

import "time"

var nudges = []string{
	"Offer to water a neighbor's plants while they're away!",
	"Share your WiFi password with a neighbor who needs internet!",
	"Offer to walk an elderly neighbor's dog!",
	"Help someone carry groceries up the stairs!",
	"Share fresh vegetables from your garden!",
	"Offer to babysit for a parent who needs a break!",
	"Help a neighbor with their technology questions!",
	"Offer to shovel snow from a neighbor's driveway!",
}

// OfTheDay returns the suggestion for the given date. The pick depends only
// on the calendar day, so everyone sees the same nudge all day.
func OfTheDay(t time.Time) string {
	return nudges[int(t.Weekday())%len(nudges)]
}
