package history

import (
	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

type grouper struct {
	groupID  string
	parent   *model.LogEntry
	details  []model.LogEntry
	children []model.LogEntry
	out      []model.GroupedLogs
}

// GroupLogs partitions a newest-first stream into causal groups. A group
// closes when the transaction slot changes or a second outcome event shows up
// in the same slot. Entries of a slot without an outcome event become groups
// of their own.
func GroupLogs(newestFirst []model.LogEntry) []model.GroupedLogs {
	g := &grouper{}
	for _, entry := range newestFirst {
		topic := entry.Topic0()
		outcome := safe.IsOutcomeTopic(topic)
		if entry.GroupID() != g.groupID || (outcome && g.parent != nil) {
			g.flush()
			g.groupID = entry.GroupID()
		}

		switch {
		case outcome:
			parent := entry
			g.parent = &parent
		case safe.IsDetailsTopic(topic):
			g.details = append(g.details, entry)
		default:
			g.children = append(g.children, entry)
		}
	}
	g.flush()
	if g.out == nil {
		return []model.GroupedLogs{}
	}
	return g.out
}

func (g *grouper) flush() {
	if g.parent != nil {
		group := model.GroupedLogs{Parent: *g.parent, Children: g.children}
		// Only the most recent details candidate is kept.
		if n := len(g.details); n > 0 {
			details := g.details[n-1]
			group.Details = &details
		}
		g.out = append(g.out, group)
	} else {
		for _, child := range g.children {
			g.out = append(g.out, model.GroupedLogs{Parent: child})
		}
	}
	g.parent = nil
	g.details = nil
	g.children = nil
}
