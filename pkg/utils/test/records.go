package testutils

import "github.com/papercomputeco/yearbook/pkg/record"

// FullMemory returns a memory with every optional field set, for round-trip
// checks against a backing.
func FullMemory() record.Memory {
	author := "Ann"
	link := "https://example.com/lake"
	postID := int64(9001)
	return record.Memory{
		Type:           record.TypeVideo,
		Content:        "lake day, second try",
		Author:         &author,
		ExternalURL:    &link,
		YearNumber:     3,
		CreatedAt:      "2025-07-04T18:30:00.250Z",
		ProviderPostID: &postID,
		MediaRefs:      []string{"BAACAgIAAxkBAAIC", "AgACAgIAAxkBAAID", "AgACAgIAAxkBAAIE"},
	}
}

// FullLetter returns a letter with every optional field set.
func FullLetter() record.Letter {
	sender := "Bo"
	at := "2026-01-01T00:00:00.000Z"
	return record.Letter{
		Message:      "open this next winter",
		Recipient:    "Ann",
		Sender:       &sender,
		CreatedAt:    "2025-12-24T09:15:00.000Z",
		ScheduledFor: &at,
		IsDelivered:  true,
	}
}
