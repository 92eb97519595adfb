package domain

import "sort"

// GroupedNotification is a presentation-level aggregate of the current window.
// It is recomputed wholesale every time the window changes and never mutated
// incrementally.
type GroupedNotification struct {
	// Key is the conversation reference id for message groups and the
	// notification id for singleton groups.
	Key         string
	Count       int
	Latest      *Notification
	Unread      bool
	DisplayName string
}

// GroupNotifications collapses NEW_MESSAGE rows sharing a reference id into
// one group per conversation and turns every other row into a singleton group.
// Message groups come first, sorted descending by their latest member's
// timestamp; the remaining rows keep the window's original order and never
// interleave with message groups.
func GroupNotifications(window []Notification) []GroupedNotification {
	messageGroups := make([]GroupedNotification, 0, len(window))
	index := make(map[string]int)
	var others []GroupedNotification

	for _, n := range window {
		if !n.Groupable() {
			latest := n
			others = append(others, GroupedNotification{
				Key:    n.ID,
				Count:  1,
				Latest: &latest,
				Unread: !n.IsRead,
			})
			continue
		}

		key := n.Ref()
		at, ok := index[key]
		if !ok {
			latest := n
			messageGroups = append(messageGroups, GroupedNotification{
				Key:    key,
				Count:  1,
				Latest: &latest,
				Unread: !n.IsRead,
			})
			index[key] = len(messageGroups) - 1
			continue
		}

		group := &messageGroups[at]
		group.Count++
		if n.CreatedAt.After(group.Latest.CreatedAt) {
			latest := n
			group.Latest = &latest
		}
		if !n.IsRead {
			group.Unread = true
		}
	}

	sort.SliceStable(messageGroups, func(i, j int) bool {
		return messageGroups[i].Latest.CreatedAt.After(messageGroups[j].Latest.CreatedAt)
	})

	return append(messageGroups, others...)
}

// CountUnreadConversations returns the number of distinct conversations with
// at least one unread message in the window. Two unread rows for the same
// conversation count once; this is the definition behind the visible badge,
// not the raw unread row count.
func CountUnreadConversations(window []Notification) int {
	seen := make(map[string]struct{})
	for _, n := range window {
		if n.IsRead || !n.Groupable() {
			continue
		}
		seen[n.Ref()] = struct{}{}
	}
	return len(seen)
}
